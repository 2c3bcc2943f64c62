package client

import (
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	conn := NewFakeConnection()
	c := NewClient("c1", "s1", conn)

	require.NoError(t, c.Send(map[string]string{"type": "state"}))
	require.NoError(t, c.Ping())

	frames := conn.Written()
	require.Len(t, frames, 2)
	assert.Equal(t, websocket.TextMessage, frames[0].Type)
	assert.JSONEq(t, `{"type":"state"}`, string(frames[0].Data))
	assert.Equal(t, websocket.PingMessage, frames[1].Type)
}

func TestSendAfterClose(t *testing.T) {
	conn := NewFakeConnection()
	c := NewClient("c1", "s1", conn)
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, c.Send("x"), ErrConnectionClosed)
}

func TestConcurrentSends(t *testing.T) {
	conn := NewFakeConnection()
	c := NewClient("c1", "s1", conn)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Send(i))
		}()
	}
	wg.Wait()
	assert.Len(t, conn.Written(), 20)
}
