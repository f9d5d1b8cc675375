package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryBus_PublishRoutesByKind(t *testing.T) {
	bus := NewInMemoryBus()

	var actions, deletions int
	bus.Subscribe(KindActionInvoked, func(_ context.Context, _ *Event) error {
		actions++
		return nil
	})
	bus.Subscribe(KindMessageDeleted, func(_ context.Context, _ *Event) error {
		deletions++
		return nil
	})

	if err := bus.Publish(context.Background(), &Event{Kind: KindActionInvoked, WorkspaceID: "ws1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.Publish(context.Background(), &Event{Kind: KindActionInvoked, WorkspaceID: "ws1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.Publish(context.Background(), &Event{Kind: KindMessageDeleted, WorkspaceID: "ws1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if actions != 2 {
		t.Errorf("action handler calls = %d, want 2", actions)
	}
	if deletions != 1 {
		t.Errorf("deletion handler calls = %d, want 1", deletions)
	}
}

func TestInMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryBus()

	var calls int
	unsub := bus.Subscribe(KindTaskSubmitted, func(_ context.Context, _ *Event) error {
		calls++
		return nil
	})
	if err := bus.Publish(context.Background(), &Event{Kind: KindTaskSubmitted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	unsub()
	if err := bus.Publish(context.Background(), &Event{Kind: KindTaskSubmitted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInMemoryBus_HandlerErrorReported(t *testing.T) {
	bus := NewInMemoryBus()

	handlerErr := errors.New("boom")
	var second bool
	bus.Subscribe(KindActionInvoked, func(_ context.Context, _ *Event) error {
		return handlerErr
	})
	bus.Subscribe(KindActionInvoked, func(_ context.Context, _ *Event) error {
		second = true
		return nil
	})

	err := bus.Publish(context.Background(), &Event{Kind: KindActionInvoked})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("err = %v, want wrapped handler error", err)
	}
	if !second {
		t.Error("second handler skipped after first errored")
	}
}

func TestInMemoryBus_History(t *testing.T) {
	bus := NewInMemoryBus()

	now := time.Now()
	for i, ws := range []string{"ws1", "ws2", "ws1"} {
		ev := &Event{Kind: KindActionInvoked, WorkspaceID: ws, ActionTag: "start", OccurredAt: now}
		ev.TaskID = []string{"a", "b", "c"}[i]
		if err := bus.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	hist := bus.History("ws1", 10)
	if len(hist) != 2 {
		t.Fatalf("len = %d, want 2", len(hist))
	}
	if hist[0].TaskID != "a" || hist[1].TaskID != "c" {
		t.Errorf("history order = [%s %s], want [a c]", hist[0].TaskID, hist[1].TaskID)
	}

	if got := bus.History("ws1", 1); len(got) != 1 || got[0].TaskID != "c" {
		t.Errorf("limited history = %v, want newest only", got)
	}
}
