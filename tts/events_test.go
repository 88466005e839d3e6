package tts

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestHub() *hub {
	return newHub(log.New(io.Discard))
}

// TestHub_DeliversToAllSubscribers tests fan-out to multiple listeners.
func TestHub_DeliversToAllSubscribers(t *testing.T) {
	h := newTestHub()
	first := h.subscribe()
	second := h.subscribe()
	defer first.Close()
	defer second.Close()

	h.publish(UtteranceStartedEvent{ID: "u1", Text: "hello"})

	for _, sub := range []*Subscription{first, second} {
		select {
		case e := <-sub.Events():
			started, ok := e.(UtteranceStartedEvent)
			if !ok {
				t.Fatalf("event type = %T, want UtteranceStartedEvent", e)
			}
			if started.ID != "u1" {
				t.Errorf("event ID = %q, want u1", started.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

// TestHub_DropsWhenSubscriberLags tests that a full subscriber loses the
// newest events instead of blocking the publisher.
func TestHub_DropsWhenSubscriberLags(t *testing.T) {
	h := newTestHub()
	sub := h.subscribe()
	defer sub.Close()

	total := subscriptionBuffer + 5
	for i := 0; i < total; i++ {
		h.publish(UtteranceStartedEvent{ID: fmt.Sprintf("u%d", i)})
	}

	var received []Event
	for {
		select {
		case e := <-sub.Events():
			received = append(received, e)
			continue
		default:
		}
		break
	}

	if len(received) != subscriptionBuffer {
		t.Fatalf("received %d events, want %d", len(received), subscriptionBuffer)
	}

	// Oldest events are kept; overflow drops the tail.
	first := received[0].(UtteranceStartedEvent)
	if first.ID != "u0" {
		t.Errorf("first event = %s, want u0", first.ID)
	}
	last := received[len(received)-1].(UtteranceStartedEvent)
	if want := fmt.Sprintf("u%d", subscriptionBuffer-1); last.ID != want {
		t.Errorf("last event = %s, want %s", last.ID, want)
	}
}

// TestSubscription_Close tests that closing detaches the subscription and
// closes its channel exactly once.
func TestSubscription_Close(t *testing.T) {
	h := newTestHub()
	sub := h.subscribe()

	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Error("channel should be closed after Close")
	}

	// Publishing to a closed subscription must not panic.
	h.publish(ErrorEvent{})
}

// TestHub_Close tests that closing the hub closes every subscriber and
// rejects new ones with an already closed stream.
func TestHub_Close(t *testing.T) {
	h := newTestHub()
	first := h.subscribe()
	second := h.subscribe()

	h.close()
	h.close()

	for i, sub := range []*Subscription{first, second} {
		if _, ok := <-sub.Events(); ok {
			t.Errorf("subscriber %d channel still open after hub close", i)
		}
	}

	late := h.subscribe()
	if _, ok := <-late.Events(); ok {
		t.Error("subscription after hub close should be closed immediately")
	}

	// Closing a subscription the hub already released must not panic.
	first.Close()
}

// TestHub_BufferedEventsSurviveUnsubscribe tests that events published
// before Close are still readable from the buffer.
func TestHub_BufferedEventsSurviveUnsubscribe(t *testing.T) {
	h := newTestHub()
	sub := h.subscribe()

	h.publish(StateChangedEvent{From: StateIdle, To: StateRunning})
	sub.Close()

	e, ok := <-sub.Events()
	if !ok {
		t.Fatal("buffered event lost on close")
	}
	change, ok := e.(StateChangedEvent)
	if !ok || change.To != StateRunning {
		t.Errorf("event = %#v, want StateChangedEvent to running", e)
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("channel should be closed after the buffer drains")
	}
}
