package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/hub/types"
	"ctchen222/Connect-Four/internal/service"

	"go.opentelemetry.io/otel"
)

var heartbeatInterval = 10 * time.Second
var tracer = otel.Tracer("room")

// Room holds every connection attached to one game session. All tabs of the
// session see the same board and may play either side.
type Room struct {
	ID       string
	service  service.GameService
	clients  map[string]*client.Client
	mu       sync.Mutex
	incoming chan *types.ClientMessage
	Done     chan struct{}
	stopOnce sync.Once
}

// NewRoom creates a new room for a session.
func NewRoom(id string, svc service.GameService) *Room {
	return &Room{
		ID:       id,
		service:  svc,
		clients:  make(map[string]*client.Client),
		incoming: make(chan *types.ClientMessage, 10),
		Done:     make(chan struct{}),
	}
}

// Start launches the room loop.
func (r *Room) Start() {
	go r.run()
}

// Stop ends the room loop. It is safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.Done) })
}

// AddClient attaches c to the room.
func (r *Room) AddClient(c *client.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// RemoveClient detaches c and returns the number of clients left.
func (r *Room) RemoveClient(c *client.Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c.ID)
	return len(r.clients)
}

// Clients returns the attached clients.
func (r *Room) Clients() []*client.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := make([]*client.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// run is the main loop for the room. Messages are handled one at a time, so
// moves from different tabs of the same session never race.
func (r *Room) run() {
	pingTicker := time.NewTicker(heartbeatInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Done:
			slog.Info("Room run goroutine stopping.", "room.id", r.ID)
			return

		case msg := <-r.incoming:
			r.HandleMessage(context.Background(), msg.Client, msg.Message)

		case <-pingTicker.C:
			for _, c := range r.Clients() {
				if err := c.Ping(); err != nil {
					slog.Warn("Failed to send ping to client, assuming disconnect", "client.id", c.ID, "room.id", r.ID, "error", err)
					c.Conn.Close()
				}
			}
		}
	}
}
