package events

import (
	"sync"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

func TestEventBus_Subscribe(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(NewAnalysisStartedEvent("a-1", core.DefaultWorkflowConfig()))

	select {
	case received := <-ch:
		if received.EventType() != TypeAnalysisStarted {
			t.Errorf("expected %s, got %s", TypeAnalysisStarted, received.EventType())
		}
		if received.AnalysisID() != "a-1" {
			t.Errorf("expected a-1, got %s", received.AnalysisID())
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := New(10)
	defer bus.Close()

	roundCh := bus.Subscribe(TypeRoundCompleted)
	allCh := bus.Subscribe()

	bus.Publish(NewStateChangedEvent("a-1", core.StateDispatch, core.StateEvaluate, 0))
	bus.Publish(NewRoundCompletedEvent("a-1", core.NewRound(0, nil, 0.5), core.AgreementModerate, false))

	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("allCh missed event %d", i)
		}
	}

	select {
	case ev := <-roundCh:
		rc, ok := ev.(RoundCompletedEvent)
		if !ok || rc.DisagreementScore != 0.5 {
			t.Errorf("unexpected event %#v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("roundCh should receive round event")
	}
	select {
	case ev := <-roundCh:
		t.Errorf("roundCh received unexpected %s", ev.EventType())
	default:
	}
}

func TestEventBus_RingBufferDropsOldest(t *testing.T) {
	bus := New(2)
	defer bus.Close()

	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(NewStateChangedEvent("a", core.StateDispatch, core.StateEvaluate, i))
	}

	if bus.DroppedCount() != 3 {
		t.Errorf("DroppedCount() = %d, want 3", bus.DroppedCount())
	}
	first := (<-ch).(StateChangedEvent)
	if first.Round != 3 {
		t.Errorf("oldest retained round = %d, want 3", first.Round)
	}
}

func TestEventBus_PriorityNeverDrops(t *testing.T) {
	bus := New(1)
	defer bus.Close()

	prio := bus.SubscribePriority(TypeAnalysisCompleted)
	var got []Event
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range prio {
			got = append(got, ev)
			if len(got) == 60 {
				return
			}
		}
	}()

	report := &core.ConsensusReport{FinalSentiment: core.SentimentPositive}
	for i := 0; i < 60; i++ {
		bus.PublishPriority(NewAnalysisCompletedEvent("a", report))
	}
	wg.Wait()

	if len(got) != 60 {
		t.Errorf("priority subscriber got %d events, want 60", len(got))
	}
}

func TestEventBus_UnsubscribeAndClose(t *testing.T) {
	bus := New(4)
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}

	other := bus.Subscribe()
	bus.Close()
	bus.Close()
	if _, ok := <-other; ok {
		t.Error("Close() should close subscriber channels")
	}

	bus.Publish(NewBaseEvent("x", "a"))
	if _, ok := <-bus.Subscribe(); ok {
		t.Error("subscribing after Close() should yield a closed channel")
	}

	var nilBus *EventBus
	nilBus.Publish(NewBaseEvent("x", "a"))
}
