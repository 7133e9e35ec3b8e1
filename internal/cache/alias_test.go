package cache

import (
	"fmt"
	"testing"
)

func TestAliasCache_SetOverwrites(t *testing.T) {
	c := NewAliasCache()

	c.Set("emp", map[string]string{"v": "1"}, "/schemas/emp.yaml")
	c.Set("emp", map[string]string{"v": "2"}, "/schemas/emp_v2.yaml")

	v, ok := c.Get("emp")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if v.(map[string]string)["v"] != "2" {
		t.Fatalf("Get(emp) = %v; want overwritten value", v)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d; want 1", c.Len())
	}

	rec, ok := c.Record("emp")
	if !ok || rec.Origin != "/schemas/emp_v2.yaml" {
		t.Fatalf("Record origin = %v; want /schemas/emp_v2.yaml", rec)
	}
}

func TestAliasCache_GetMiss(t *testing.T) {
	c := NewAliasCache()
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	s := c.Stats()
	if s.Misses != 1 || s.Hits != 0 {
		t.Fatalf("stats = %+v; want 1 miss, 0 hits", s)
	}
}

func TestAliasCache_NeverAutoEvicted(t *testing.T) {
	c := NewAliasCache()

	// Far more entries and accesses than any auto-managed tier would keep.
	for i := 0; i < 500; i++ {
		c.Set(key(i), i, "")
	}
	for round := 0; round < 3; round++ {
		for i := 0; i < 500; i++ {
			if _, ok := c.Get(key(i)); !ok {
				t.Fatalf("alias %s evicted after %d rounds", key(i), round)
			}
		}
	}
	if c.Len() != 500 {
		t.Fatalf("Len = %d; want 500", c.Len())
	}
	if c.Stats().Evictions != 0 {
		t.Fatal("alias tier must never evict")
	}
}

func TestAliasCache_RemoveAndList(t *testing.T) {
	c := NewAliasCache()
	c.Set("b", 2, "")
	c.Set("a", 1, "")
	c.Set("c", 3, "")

	c.Remove("b")
	if c.Has("b") {
		t.Fatal("expected b removed")
	}

	got := c.List()
	want := []string{"a", "c"}
	if len(got) != len(want) || got[0] != "a" || got[1] != "c" {
		t.Fatalf("List = %v; want %v", got, want)
	}
}

func TestAliasCache_ClearPattern(t *testing.T) {
	c := NewAliasCache()
	c.Set("user_emp", 1, "")
	c.Set("user_dept", 2, "")
	c.Set("sys_audit", 3, "")

	if n := c.Clear("user_*"); n != 2 {
		t.Fatalf("Clear(user_*) removed %d; want 2", n)
	}
	if !c.Has("sys_audit") {
		t.Fatal("expected sys_audit to survive")
	}

	if n := c.Clear(""); n != 1 {
		t.Fatalf("Clear(\"\") removed %d; want 1", n)
	}
	if c.Len() != 0 {
		t.Fatalf("Len after full clear = %d; want 0", c.Len())
	}
}

func key(i int) string {
	return fmt.Sprintf("alias_%03d", i)
}
