package audit

import (
	"io"
	"log/slog"
	"testing"
)

func TestRedact(t *testing.T) {
	in := map[string]any{
		"rows":     3,
		"dsn":      "file:emp.db?auth=hunter2",
		"password": "x",
		"nested": map[string]any{
			"api_key": "abc",
			"count":   1,
		},
	}

	out := Redact(in)
	if out["rows"] != 3 {
		t.Fatalf("rows = %v; want 3", out["rows"])
	}
	if out["dsn"] != redactedValue || out["password"] != redactedValue {
		t.Fatalf("sensitive keys not redacted: %v", out)
	}
	nested := out["nested"].(map[string]any)
	if nested["api_key"] != redactedValue {
		t.Fatalf("nested key not redacted: %v", nested)
	}
	if nested["count"] != 1 {
		t.Fatalf("nested count = %v; want 1", nested["count"])
	}

	// Input must not be mutated.
	if in["dsn"] == redactedValue {
		t.Fatal("Redact mutated its input")
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(&Event{RunID: "r1", Type: EventRunStarted})

	select {
	case ev := <-ch:
		if ev.RunID != "r1" || ev.Type != EventRunStarted {
			t.Fatalf("event = %+v; want r1/run_started", ev)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestBus_SlowConsumerDropsEvents(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overflow the subscriber buffer; Publish must never block.
	for i := 0; i < 200; i++ {
		b.Publish(&Event{RunID: "r", Type: EventStepDone})
	}

	drained := 0
	for {
		select {
		case <-ch:
			drained++
			continue
		default:
		}
		break
	}
	if drained == 0 || drained > 64 {
		t.Fatalf("drained = %d; want between 1 and the buffer size", drained)
	}
}

func TestLogger_RecordStampsAndPublishes(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	l := NewLogger(bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.Record(&Event{RunID: "r1", Type: EventTxCommitted, Detail: map[string]any{"dsn": "x"}})

	ev := <-ch
	if ev.ID == "" || ev.Time.IsZero() {
		t.Fatalf("event not stamped: %+v", ev)
	}
	if ev.Detail["dsn"] != redactedValue {
		t.Fatal("detail not redacted before publish")
	}
}
