package cache

import "testing"

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"", "anything", true},
		{"emp", "emp", true},
		{"emp", "employees", false},
		{"user_*", "user_emp", true},
		{"user_*", "user_", true},
		{"user_*", "sys_emp", false},
		{"*_schema", "emp_schema", true},
		{"*_schema", "emp_schema_v2", false},
		{"*", "anything", true},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "acb", false},
	}
	for _, tc := range cases {
		if got := globMatch(tc.pattern, tc.key); got != tc.want {
			t.Errorf("globMatch(%q, %q) = %v; want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}
