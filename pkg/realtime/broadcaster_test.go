package realtime

import (
	"testing"
)

func TestNewBroadcaster(t *testing.T) {
	b := NewBroadcaster[string]()
	if b == nil {
		t.Fatal("NewBroadcaster returned nil")
	}
	if b.Len() != 0 {
		t.Errorf("Len %d, want 0", b.Len())
	}
}

func TestBroadcaster_PublishDeliversToMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster[string]()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish("spinning")
	if got := <-ch1; got != "spinning" {
		t.Errorf("ch1 got %q, want spinning", got)
	}
	if got := <-ch2; got != "spinning" {
		t.Errorf("ch2 got %q, want spinning", got)
	}
}

func TestBroadcaster_PreservesPublishOrder(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 5; i++ {
		b.Publish(i)
	}
	for i := 0; i < 5; i++ {
		if got := <-ch; got != i {
			t.Fatalf("event %d: got %d", i, got)
		}
	}
}

func TestBroadcaster_DropsWhenSubscriberLags(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < DefaultBuffer+10; i++ {
		b.Publish(i)
	}
	if len(ch) != DefaultBuffer {
		t.Errorf("buffered %d events, want %d", len(ch), DefaultBuffer)
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[string]()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	_, open := <-ch
	if open {
		t.Error("channel should be closed after Unsubscribe")
	}
	// second unsubscribe must not panic on double close
	b.Unsubscribe(ch)
}

func TestBroadcaster_CloseEndsSubscriptions(t *testing.T) {
	b := NewBroadcaster[string]()
	ch := b.Subscribe()
	b.Close()

	if _, open := <-ch; open {
		t.Error("subscriber channel should be closed after Close")
	}
	b.Publish("late")
	b.Close()

	late := b.Subscribe()
	if _, open := <-late; open {
		t.Error("subscribing to a closed broadcaster should return a closed channel")
	}
	if b.Len() != 0 {
		t.Errorf("Len %d, want 0", b.Len())
	}
}
