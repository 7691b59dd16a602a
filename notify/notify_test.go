package notify

import (
	"testing"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(4)
	b := hub.Subscribe(4)
	defer a.Close()
	defer b.Close()

	hub.Publish(Event{Kind: EventConverted, JobID: "j1"})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case ev := <-sub.Events():
			if ev.Kind != EventConverted || ev.JobID != "j1" {
				t.Errorf("got %+v", ev)
			}
		default:
			t.Error("subscriber missed event")
		}
	}
}

func TestEventsDeliveredInPublishOrder(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(8)
	defer sub.Close()

	sequence := []Kind{
		EventUploadProgress,
		EventUploadProgress,
		EventConverted,
		EventTranscribing,
		EventCompleted,
	}
	for _, kind := range sequence {
		hub.Publish(Event{Kind: kind, JobID: "j1"})
	}

	for i, want := range sequence {
		ev := <-sub.Events()
		if ev.Kind != want {
			t.Errorf("event %d: got %s, want %s", i, ev.Kind, want)
		}
	}
}

func TestLateSubscriberSeesNoBacklog(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{Kind: EventCompleted, JobID: "j1"})

	sub := hub.Subscribe(4)
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		t.Errorf("late subscriber received replayed event %+v", ev)
	default:
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)
	defer sub.Close()

	// Second publish overflows the buffer; Publish must return anyway.
	hub.Publish(Event{Kind: EventUploadProgress, JobID: "j1", Fraction: 0.1})
	hub.Publish(Event{Kind: EventUploadProgress, JobID: "j1", Fraction: 0.2})

	ev := <-sub.Events()
	if ev.Fraction != 0.1 {
		t.Errorf("got fraction %v, want 0.1", ev.Fraction)
	}
	select {
	case ev := <-sub.Events():
		t.Errorf("unexpected second event %+v", ev)
	default:
	}
}

func TestClosedSubscriberStopsReceiving(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(4)
	sub.Close()

	hub.Publish(Event{Kind: EventFailed, JobID: "j1", Reason: "boom"})

	if _, open := <-sub.Events(); open {
		t.Error("events channel still open after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(4)
	sub.Close()
	sub.Close()
}
