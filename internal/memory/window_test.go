package memory

import (
	"fmt"
	"testing"
)

func TestWindowAppendWithinBound(t *testing.T) {
	w := NewWindow(3)

	w.Append(TurnPair{User: "a", Assistant: "1"})
	w.Append(TurnPair{User: "b", Assistant: "2"})

	snapshot := w.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(snapshot))
	}
	if snapshot[0].User != "a" || snapshot[1].User != "b" {
		t.Fatalf("unexpected order: %+v", snapshot)
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	const bound = 6
	w := NewWindow(bound)

	for i := 1; i <= bound+4; i++ {
		w.Append(TurnPair{
			User:      fmt.Sprintf("u%d", i),
			Assistant: fmt.Sprintf("a%d", i),
		})
	}

	snapshot := w.Snapshot()
	if len(snapshot) != bound {
		t.Fatalf("expected %d pairs, got %d", bound, len(snapshot))
	}
	if snapshot[0].User != "u5" {
		t.Fatalf("expected oldest surviving pair u5, got %s", snapshot[0].User)
	}
	if snapshot[bound-1].User != "u10" {
		t.Fatalf("expected newest pair u10, got %s", snapshot[bound-1].User)
	}
}

func TestWindowSnapshotIsCopy(t *testing.T) {
	w := NewWindow(2)
	w.Append(TurnPair{User: "a", Assistant: "1"})

	snapshot := w.Snapshot()
	snapshot[0].User = "mutated"

	if w.Snapshot()[0].User != "a" {
		t.Fatal("snapshot mutation leaked into window")
	}
}

func TestWindowMinimumBound(t *testing.T) {
	w := NewWindow(0)
	w.Append(TurnPair{User: "a", Assistant: "1"})
	w.Append(TurnPair{User: "b", Assistant: "2"})

	if w.Len() != 1 {
		t.Fatalf("expected bound raised to 1, got len %d", w.Len())
	}
}
