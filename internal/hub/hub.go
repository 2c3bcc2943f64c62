package hub

import (
	"context"
	"fmt"
	"log/slog"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/events"
	"ctchen222/Connect-Four/internal/hub/types"
	"ctchen222/Connect-Four/internal/room"
	"ctchen222/Connect-Four/internal/service"
	"ctchen222/Connect-Four/internal/telemetry"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hub")

// Hub manages the rooms of this instance. Rooms are keyed by session id and
// only touched from the Run goroutine.
type Hub struct {
	service    service.GameService
	bus        events.Bus
	metrics    *telemetry.Metrics
	localRooms map[string]*room.Room
	register   chan *types.RegistrationRequest
	unregister chan *client.Client
	done       chan struct{}
}

// NewHub creates a new hub.
func NewHub(svc service.GameService, bus events.Bus, metrics *telemetry.Metrics) *Hub {
	return &Hub{
		service:    svc,
		bus:        bus,
		metrics:    metrics,
		localRooms: make(map[string]*room.Room),
		register:   make(chan *types.RegistrationRequest),
		unregister: make(chan *client.Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub and blocks until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	eventsCh, err := h.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.EventsChannel)

	for {
		select {
		case <-ctx.Done():
			h.closeAll(context.Background())
			return nil

		case req := <-h.register:
			h.handleRegistration(req)

		case c := <-h.unregister:
			h.handleUnregistration(ctx, c)

		case event, ok := <-eventsCh:
			if !ok {
				h.closeAll(context.Background())
				return nil
			}
			h.handleEvent(ctx, event)
		}
	}
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// Done is closed once Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// unregisterClient hands c back to the Run loop. It gives up once the hub
// has stopped.
func (h *Hub) unregisterClient(c *client.Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) closeAll(ctx context.Context) {
	for id, r := range h.localRooms {
		for _, c := range r.Clients() {
			c.Conn.Close()
		}
		r.Stop()
		delete(h.localRooms, id)
		h.metrics.SessionDetached(ctx)
	}
}
