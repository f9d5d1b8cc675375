// Package bot connects the inbound event stream to the task engine. The
// dispatcher is the only consumer of gateway events; everything it does is a
// thin translation into one engine call.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/taskboard/engine"
	"github.com/GoCodeAlone/taskboard/events"
)

// DefaultMaxInteractionAge is the acceptance window for inbound interactions.
// Button presses and form submissions can arrive long after the user acted;
// anything older than this is rejected before any mutation.
const DefaultMaxInteractionAge = 15 * time.Minute

// Dispatcher subscribes to gateway events and routes each kind to its engine
// operation. It owns the staleness guard; the engine never sees stale
// interactions.
type Dispatcher struct {
	engine *engine.Engine
	bus    events.Bus
	logger *slog.Logger
	maxAge time.Duration

	now    func() time.Time
	unsubs []func()
}

// New creates a dispatcher. maxAge <= 0 selects DefaultMaxInteractionAge.
func New(eng *engine.Engine, bus events.Bus, logger *slog.Logger, maxAge time.Duration) *Dispatcher {
	if maxAge <= 0 {
		maxAge = DefaultMaxInteractionAge
	}
	return &Dispatcher{
		engine: eng,
		bus:    bus,
		logger: logger,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Start subscribes to every event kind the dispatcher handles.
func (d *Dispatcher) Start() {
	sub := func(kind events.Kind, h events.Handler) {
		d.unsubs = append(d.unsubs, d.bus.Subscribe(kind, h))
	}
	sub(events.KindActionInvoked, d.guarded(d.handleActionInvoked))
	sub(events.KindTaskSubmitted, d.guarded(d.handleTaskSubmitted))
	sub(events.KindTaskEdited, d.guarded(d.handleTaskEdited))
	sub(events.KindUserAssigned, d.guarded(d.handleUserAssigned))
	sub(events.KindChannelsConfigured, d.guarded(d.handleChannelsConfigured))
	sub(events.KindSummaryRefresh, d.guarded(d.handleSummaryRefresh))
	// Deletion notifications are facts about the world, not user intent;
	// they are never stale.
	sub(events.KindMessageDeleted, d.handleMessageDeleted)
}

// Stop removes every subscription.
func (d *Dispatcher) Stop() {
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
}

// guarded wraps a handler with the staleness check.
func (d *Dispatcher) guarded(h events.Handler) events.Handler {
	return func(ctx context.Context, ev *events.Event) error {
		if err := d.checkFresh(ev); err != nil {
			d.logger.Warn("stale interaction rejected",
				slog.String("kind", string(ev.Kind)),
				slog.String("workspace", ev.WorkspaceID),
				slog.Time("occurred_at", ev.OccurredAt))
			return err
		}
		return h(ctx, ev)
	}
}

func (d *Dispatcher) checkFresh(ev *events.Event) error {
	if ev.OccurredAt.IsZero() {
		return nil
	}
	if age := d.now().Sub(ev.OccurredAt); age > d.maxAge {
		return fmt.Errorf("interaction aged %s: %w", age.Round(time.Second), engine.ErrStale)
	}
	return nil
}

func (d *Dispatcher) handleActionInvoked(ctx context.Context, ev *events.Event) error {
	return d.engine.Dispatch(ctx, ev.ActionTag, ev.WorkspaceID, ev.TaskID, ev.UserID)
}

func (d *Dispatcher) handleTaskSubmitted(ctx context.Context, ev *events.Event) error {
	_, err := d.engine.CreateTask(ctx, ev.WorkspaceID, ev.Title, ev.Description)
	return err
}

func (d *Dispatcher) handleTaskEdited(ctx context.Context, ev *events.Event) error {
	var title, description *string
	if ev.Title != "" {
		title = &ev.Title
	}
	if ev.Description != "" {
		description = &ev.Description
	}
	_, err := d.engine.EditTask(ctx, ev.WorkspaceID, ev.TaskID, title, description)
	return err
}

func (d *Dispatcher) handleUserAssigned(ctx context.Context, ev *events.Event) error {
	_, err := d.engine.AssignUser(ctx, ev.WorkspaceID, ev.TaskID, ev.UserID)
	return err
}

func (d *Dispatcher) handleChannelsConfigured(ctx context.Context, ev *events.Event) error {
	if len(ev.Channels) != 3 {
		return fmt.Errorf("configure channels: got %d channels, want 3", len(ev.Channels))
	}
	_, err := d.engine.ConfigureChannels(ctx, ev.WorkspaceID, ev.Channels[0], ev.Channels[1], ev.Channels[2])
	return err
}

func (d *Dispatcher) handleSummaryRefresh(ctx context.Context, ev *events.Event) error {
	return d.engine.RefreshAllSummaries(ctx, ev.WorkspaceID)
}

func (d *Dispatcher) handleMessageDeleted(ctx context.Context, ev *events.Event) error {
	return d.engine.HandleMessageDeleted(ctx, ev.MessageID)
}
