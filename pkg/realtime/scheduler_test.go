package realtime

import (
	"sync"
	"testing"
	"time"
)

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sequence did not finish")
	}
}

func TestScheduler_RunsPhasesInOrder(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)

	var got []string
	record := func(name string) func(*Handle) {
		return func(*Handle) { got = append(got, name) }
	}

	mu.Lock()
	h := s.Schedule("r1",
		Phase{Name: "draw", After: 5 * time.Millisecond, Run: record("draw")},
		Phase{Name: "reveal", After: 5 * time.Millisecond, Run: record("reveal")},
		Phase{Name: "pick", After: 5 * time.Millisecond, Run: record("pick")},
	)
	if !s.Pending("r1") {
		t.Error("room should have a pending sequence")
	}
	mu.Unlock()

	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"draw", "reveal", "pick"}
	if len(got) != len(want) {
		t.Fatalf("ran %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("phase %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if s.Pending("r1") {
		t.Error("slot should be released after the last phase")
	}
	if h.Canceled() {
		t.Error("completed sequence should not report canceled")
	}
	if h.LastPhase() != "pick" {
		t.Errorf("LastPhase %q, want pick", h.LastPhase())
	}
}

func TestScheduler_CancelPreventsCallback(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	fired := false

	mu.Lock()
	h := s.Schedule("r1", Phase{Name: "draw", After: 20 * time.Millisecond, Run: func(*Handle) { fired = true }})
	if !s.Cancel("r1") {
		t.Error("Cancel should report a pending sequence")
	}
	mu.Unlock()

	waitDone(t, h)
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Error("canceled callback fired")
	}
	if !h.Canceled() {
		t.Error("handle should report canceled")
	}
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	mu.Lock()
	defer mu.Unlock()
	if s.Cancel("nope") {
		t.Error("Cancel on empty slot should return false")
	}
	s.Schedule("r1", Phase{After: time.Hour})
	s.Cancel("r1")
	if s.Cancel("r1") {
		t.Error("second Cancel should return false")
	}
}

func TestScheduler_CancelBetweenPhasesStopsRemaining(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	var ran []string

	mu.Lock()
	h := s.Schedule("r1",
		Phase{Name: "draw", After: time.Millisecond, Run: func(*Handle) { ran = append(ran, "draw") }},
		Phase{Name: "reveal", After: 50 * time.Millisecond, Run: func(*Handle) { ran = append(ran, "reveal") }},
	)
	mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		if len(ran) == 1 {
			s.Cancel("r1")
			mu.Unlock()
			break
		}
		mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatal("first phase never ran")
		}
		time.Sleep(time.Millisecond)
	}

	waitDone(t, h)
	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 {
		t.Errorf("ran %v, want only draw", ran)
	}
}

func TestScheduler_ScheduleReplacesSlot(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	var ran []string

	mu.Lock()
	first := s.Schedule("r1", Phase{Name: "old", After: 10 * time.Millisecond, Run: func(*Handle) { ran = append(ran, "old") }})
	second := s.Schedule("r1", Phase{Name: "new", After: 10 * time.Millisecond, Run: func(*Handle) { ran = append(ran, "new") }})
	if cur, _ := s.Current("r1"); cur != second {
		t.Error("Current should return the newest handle")
	}
	mu.Unlock()

	waitDone(t, first)
	waitDone(t, second)

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 || ran[0] != "new" {
		t.Errorf("ran %v, want [new]", ran)
	}
	if !first.Canceled() {
		t.Error("replaced handle should be canceled")
	}
}

func TestScheduler_LastPhaseMayScheduleNext(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	var next *Handle
	nextRan := make(chan struct{})

	mu.Lock()
	h := s.Schedule("r1", Phase{Name: "draw", After: time.Millisecond, Run: func(*Handle) {
		next = s.Schedule("r1", Phase{Name: "again", After: time.Millisecond, Run: func(*Handle) { close(nextRan) }})
	}})
	mu.Unlock()

	waitDone(t, h)
	select {
	case <-nextRan:
	case <-time.After(time.Second):
		t.Fatal("sequence scheduled from the last phase never ran")
	}
	if h.Canceled() {
		t.Error("first handle completed and should not be canceled")
	}
	mu.Lock()
	defer mu.Unlock()
	if next == nil {
		t.Fatal("next handle not recorded")
	}
}

func TestScheduler_RoomsAreIndependent(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	fired := make(chan string, 2)

	mu.Lock()
	s.Schedule("a", Phase{After: 5 * time.Millisecond, Run: func(*Handle) { fired <- "a" }})
	b := s.Schedule("b", Phase{After: 5 * time.Millisecond, Run: func(*Handle) { fired <- "b" }})
	s.Cancel("a")
	if s.Len() != 1 {
		t.Errorf("Len %d, want 1", s.Len())
	}
	mu.Unlock()

	waitDone(t, b)
	select {
	case got := <-fired:
		if got != "b" {
			t.Errorf("fired %q, want b", got)
		}
	case <-time.After(time.Second):
		t.Fatal("room b never fired")
	}
	select {
	case got := <-fired:
		t.Errorf("unexpected callback for %q", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestScheduler_Stop(t *testing.T) {
	var mu sync.Mutex
	s := NewScheduler(&mu)
	mu.Lock()
	h1 := s.Schedule("a", Phase{After: time.Hour})
	h2 := s.Schedule("b", Phase{After: time.Hour})
	mu.Unlock()

	s.Stop()
	waitDone(t, h1)
	waitDone(t, h2)
	if s.Len() != 0 {
		t.Errorf("Len %d after Stop, want 0", s.Len())
	}
}
