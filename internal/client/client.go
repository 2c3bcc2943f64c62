package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is one browser tab attached to a game session.
type Client struct {
	ID        string
	SessionID string
	Conn      Connection

	// gorilla/websocket allows one concurrent writer per connection.
	writeMu sync.Mutex
}

func NewClient(id, sessionID string, conn Connection) *Client {
	return &Client{
		ID:        id,
		SessionID: sessionID,
		Conn:      conn,
	}
}

// Send writes msg as a JSON text frame.
func (c *Client) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}
