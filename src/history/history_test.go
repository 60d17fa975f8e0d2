package history

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLogAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	events := []Event{
		{TaskName: "a", Action: ActionRun, Timestamp: base},
		{TaskName: "a", Action: ActionSuccess, Timestamp: base.Add(time.Minute)},
		{TaskName: "b", Action: ActionRun, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	got, err := store.Get(ctx, Filter{TaskName: "a"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events for task a, got %d", len(got))
	}
	if got[0].Action != ActionRun || got[1].Action != ActionSuccess {
		t.Errorf("expected ordering run, success; got %v, %v", got[0].Action, got[1].Action)
	}
}

func TestMemoryStoreLatest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store.Log(ctx, Event{TaskName: "a", Action: ActionRun, Timestamp: base})
	store.Log(ctx, Event{TaskName: "a", Action: ActionSuccess, Timestamp: base.Add(time.Minute)})
	store.Log(ctx, Event{TaskName: "a", Action: ActionRun, Timestamp: base.Add(2 * time.Minute)})

	latest, ok, err := store.Latest(ctx, "a", ActionRun)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !ok {
		t.Fatal("expected a latest run event")
	}
	if !latest.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Latest returned wrong event: %+v", latest)
	}

	_, ok, err = store.Latest(ctx, "missing", "")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if ok {
		t.Error("expected no event for unknown task")
	}
}

func TestFilterAfterBefore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		store.Log(ctx, Event{TaskName: "a", Action: ActionRun, Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}

	after := base.Add(time.Minute)
	before := base.Add(3 * time.Minute)
	got, err := store.Get(ctx, Filter{TaskName: "a", After: &after, Before: &before})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events in [1min, 3min), got %d", len(got))
	}
}
