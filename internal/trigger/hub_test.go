package trigger

import "testing"

func TestHub_SubscribePublish(t *testing.T) {
	t.Parallel()

	h := NewHub()
	a, cancelA := h.Subscribe(1)
	b, cancelB := h.Subscribe(1)
	if h.Subscribers() != 2 {
		t.Fatalf("Subscribers = %d", h.Subscribers())
	}

	h.Publish(Event{ID: "e1"})
	if (<-a).ID != "e1" || (<-b).ID != "e1" {
		t.Fatal("both subscribers should receive e1")
	}

	cancelA()
	cancelA()
	if _, open := <-a; open {
		t.Error("cancelled subscription should be closed")
	}
	h.Publish(Event{ID: "e2"})
	if (<-b).ID != "e2" {
		t.Error("remaining subscriber missed e2")
	}
	cancelB()
	if h.Subscribers() != 0 {
		t.Errorf("Subscribers = %d after cancel", h.Subscribers())
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Publish(Event{ID: "kept"})
	h.Publish(Event{ID: "dropped"})

	if got := <-ch; got.ID != "kept" {
		t.Fatalf("got %s", got.ID)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected %s", e.ID)
	default:
	}
}
