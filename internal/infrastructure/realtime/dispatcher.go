package realtime

import (
	"context"
	"log/slog"
	"sync"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/infrastructure/metrics"
	"rncflow/internal/ports"
)

const defaultMaxInFlight = 64

// route lists who hears about an event type.
type route struct {
	all    bool
	groups []rnc.Role
	opener bool
}

var routes = map[rnc.EventType]route{
	rnc.EventCreated: {
		groups: []rnc.Role{rnc.RoleQuality, rnc.RoleEngineer, rnc.RoleAdmin},
	},
	rnc.EventAnalysisCompleted: {
		groups: []rnc.Role{rnc.RoleTechnician, rnc.RoleAdmin},
		opener: true,
	},
	rnc.EventReworkCompleted: {
		groups: []rnc.Role{rnc.RoleQuality, rnc.RoleEngineer, rnc.RoleAdmin},
	},
	rnc.EventClosed:  {all: true},
	rnc.EventUpdated: {all: true},
}

func audienceFor(event rnc.Event) (Audience, bool) {
	r, ok := routes[event.Type]
	if !ok {
		return Audience{}, false
	}
	if r.all {
		return Audience{All: true}, true
	}

	audience := Audience{Groups: make([]string, 0, len(r.groups))}
	for _, role := range r.groups {
		audience.Groups = append(audience.Groups, role.Group())
	}
	if r.opener && event.RNC.OpenByID != 0 {
		audience.UserIDs = []uint64{event.RNC.OpenByID}
	}
	return audience, true
}

// Dispatcher implements ports.Notifier on top of the hub. Each event is
// delivered on its own goroutine; when maxInFlight deliveries are running the
// event is dropped, so Publish never waits.
type Dispatcher struct {
	hub     *Hub
	metrics *metrics.Metrics
	slots   chan struct{}
	wg      sync.WaitGroup
}

var _ ports.Notifier = (*Dispatcher)(nil)

func NewDispatcher(hub *Hub, maxInFlight int, m *metrics.Metrics) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	return &Dispatcher{
		hub:     hub,
		metrics: m,
		slots:   make(chan struct{}, maxInFlight),
	}
}

func (d *Dispatcher) Publish(ctx context.Context, event rnc.Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	logCtx := logging.WithAttrs(
		ctx,
		slog.String("component", "realtime.dispatcher"),
		slog.String("event", string(event.Type)),
		slog.Uint64("num_rnc", event.RNC.Number),
	)

	audience, ok := audienceFor(event)
	if !ok {
		logging.Warn(logCtx, "no route for event type")
		return
	}

	select {
	case d.slots <- struct{}{}:
	default:
		if d.metrics != nil {
			d.metrics.EventsDropped.Inc()
		}
		logging.Warn(logCtx, "dispatch saturated, event dropped")
		return
	}
	if d.metrics != nil {
		d.metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()

		delivered, err := d.hub.Deliver(ctx, audience, string(event.Type), event.RNC)
		if err != nil {
			logging.Error(logCtx, "event delivery failed", slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Debug(logCtx, "event delivered", slog.Int("delivered", delivered))
	}()
}

// Wait blocks until in-flight deliveries finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
