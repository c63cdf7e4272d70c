package realtime

import "testing"

func TestNewRoomStore(t *testing.T) {
	s := NewRoomStore[string, string]()
	if s == nil {
		t.Fatal("NewRoomStore returned nil")
	}
	if s.Len() != 0 {
		t.Errorf("Len %d, want 0", s.Len())
	}
}

func TestRoomStore_Create_Get(t *testing.T) {
	s := NewRoomStore[string, string]()
	s.Create("room1", "state1")
	room, ok := s.Get("room1")
	if !ok {
		t.Fatal("Get returned false for existing room")
	}
	if room.ID != "room1" {
		t.Errorf("room ID %q, want room1", room.ID)
	}
	if room.State != "state1" {
		t.Errorf("room State %q, want state1", room.State)
	}
	if room.Hub() == nil {
		t.Error("room hub should not be nil")
	}

	_, ok = s.Get("nonexistent")
	if ok {
		t.Error("Get should return false for missing ID")
	}
}

func TestRoomStore_Publish(t *testing.T) {
	s := NewRoomStore[string, string]()
	s.Create("r1", "x")
	hub, ok := s.Broadcaster("r1")
	if !ok {
		t.Fatal("Broadcaster returned false for existing room")
	}
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	if !s.Publish("r1", "event1") {
		t.Fatal("Publish returned false for existing room")
	}
	got := <-ch
	if got != "event1" {
		t.Errorf("got %q, want event1", got)
	}

	if s.Publish("missing", "event2") {
		t.Error("Publish should return false for missing room")
	}
	if _, ok := s.Broadcaster("missing"); ok {
		t.Error("Broadcaster should return false for missing room")
	}
}

func TestRoomStore_RemoveClosesSubscribers(t *testing.T) {
	s := NewRoomStore[string, string]()
	s.Create("r1", "x")
	hub, _ := s.Broadcaster("r1")
	ch := hub.Subscribe()

	if _, ok := s.Remove("r1"); !ok {
		t.Fatal("Remove returned false for existing room")
	}
	if _, open := <-ch; open {
		t.Error("subscriber should be closed when the room is removed")
	}
	if _, ok := s.Get("r1"); ok {
		t.Error("room should be gone after Remove")
	}
	if _, ok := s.Remove("r1"); ok {
		t.Error("second Remove should return false")
	}
}

func TestRoomStore_CreateReplacesRoom(t *testing.T) {
	s := NewRoomStore[string, string]()
	s.Create("r1", "a")
	hub, _ := s.Broadcaster("r1")
	ch := hub.Subscribe()

	s.Create("r1", "b")
	if _, open := <-ch; open {
		t.Error("old subscribers should be closed when the room is replaced")
	}
	room, _ := s.Get("r1")
	if room.State != "b" {
		t.Errorf("State %q, want b", room.State)
	}
}

func TestRoomStore_IDs(t *testing.T) {
	s := NewRoomStore[int, string]()
	s.Create("b", 1)
	s.Create("a", 2)
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs %v, want [a b]", ids)
	}
}
