package client

import (
	"errors"
	"sync"
)

// ErrConnectionClosed is returned by FakeConnection once it is closed.
var ErrConnectionClosed = errors.New("connection closed")

// Frame is a message written to a FakeConnection.
type Frame struct {
	Type int
	Data []byte
}

// FakeConnection is an in-memory Connection for tests only; the server never
// constructs one. Frames pushed with Deliver are returned by ReadMessage in
// order.
type FakeConnection struct {
	mu      sync.Mutex
	written []Frame
	inbox   chan []byte
	closed  chan struct{}
	once    sync.Once
}

func NewFakeConnection() *FakeConnection {
	return &FakeConnection{
		inbox:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *FakeConnection) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return ErrConnectionClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, Frame{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (f *FakeConnection) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.inbox:
		return 1, data, nil
	case <-f.closed:
		return 0, nil, ErrConnectionClosed
	}
}

func (f *FakeConnection) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// Deliver queues data to be read by the next ReadMessage call.
func (f *FakeConnection) Deliver(data []byte) {
	f.inbox <- data
}

// Written returns a copy of every frame written so far.
func (f *FakeConnection) Written() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.written...)
}

// Closed reports whether Close has been called.
func (f *FakeConnection) Closed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}
