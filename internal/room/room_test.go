package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ctchen222/Connect-Four/internal/client"
	"ctchen222/Connect-Four/internal/game"
	"ctchen222/Connect-Four/internal/repository"
	"ctchen222/Connect-Four/internal/service"
	"ctchen222/Connect-Four/internal/service/mocks"
	"ctchen222/Connect-Four/pkg/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func lastMessage(t *testing.T, conn *client.FakeConnection) proto.ServerToClientMessage {
	t.Helper()
	frames := conn.Written()
	require.NotEmpty(t, frames)
	var msg proto.ServerToClientMessage
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &msg))
	return msg
}

func newTestRoom(t *testing.T) (*Room, *mocks.MockGameService, *client.Client, *client.FakeConnection) {
	t.Helper()
	svc := mocks.NewMockGameService(gomock.NewController(t))
	r := NewRoom("s1", svc)
	conn := client.NewFakeConnection()
	c := client.NewClient("c1", "s1", conn)
	r.AddClient(c)
	return r, svc, c, conn
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		setup      func(svc *mocks.MockGameService)
		wantType   string
		wantReason string
	}{
		{
			name: "accepted drop writes nothing",
			raw:  `{"type":"drop","column":3}`,
			setup: func(svc *mocks.MockGameService) {
				svc.EXPECT().Drop(gomock.Any(), "s1", 3).Return(&service.Move{}, nil)
			},
		},
		{
			name: "full column",
			raw:  `{"type":"drop","column":0}`,
			setup: func(svc *mocks.MockGameService) {
				svc.EXPECT().Drop(gomock.Any(), "s1", 0).Return(nil, game.ErrColumnFull)
			},
			wantType:   proto.TypeError,
			wantReason: "column is full",
		},
		{
			name: "store failure is hidden",
			raw:  `{"type":"drop","column":1}`,
			setup: func(svc *mocks.MockGameService) {
				svc.EXPECT().Drop(gomock.Any(), "s1", 1).Return(nil, assert.AnError)
			},
			wantType:   proto.TypeError,
			wantReason: "internal error",
		},
		{
			name: "reset with size",
			raw:  `{"type":"reset","width":8,"height":7}`,
			setup: func(svc *mocks.MockGameService) {
				svc.EXPECT().Reset(gomock.Any(), "s1", 8, 7).Return(&repository.Session{}, nil)
			},
		},
		{
			name: "sync",
			raw:  `{"type":"sync"}`,
			setup: func(svc *mocks.MockGameService) {
				svc.EXPECT().Get(gomock.Any(), "s1").Return(&repository.Session{ID: "s1", Engine: game.NewDefault()}, nil)
			},
			wantType: proto.TypeState,
		},
		{
			name:       "malformed json",
			raw:        `{"type":`,
			wantType:   proto.TypeError,
			wantReason: "malformed message",
		},
		{
			name:     "drop without column",
			raw:      `{"type":"drop"}`,
			wantType: proto.TypeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, svc, c, conn := newTestRoom(t)
			if tt.setup != nil {
				tt.setup(svc)
			}

			r.HandleMessage(context.Background(), c, []byte(tt.raw))

			if tt.wantType == "" {
				assert.Empty(t, conn.Written())
				return
			}
			msg := lastMessage(t, conn)
			assert.Equal(t, tt.wantType, msg.Type)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, msg.Reason)
			}
		})
	}
}

func TestReadPumpFeedsRoomLoop(t *testing.T) {
	r, svc, c, conn := newTestRoom(t)
	handled := make(chan struct{})
	svc.EXPECT().Drop(gomock.Any(), "s1", 4).DoAndReturn(func(context.Context, string, int) (*service.Move, error) {
		close(handled)
		return &service.Move{}, nil
	})

	r.Start()
	defer r.Stop()

	closed := make(chan *client.Client, 1)
	go r.ReadPump(c, func(c *client.Client) { closed <- c })

	conn.Deliver([]byte(`{"type":"drop","column":4}`))
	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("drop was not handled")
	}

	conn.Close()
	select {
	case got := <-closed:
		assert.Equal(t, c, got)
	case <-time.After(time.Second):
		t.Fatal("onClose was not called")
	}
}

func TestRefreshBroadcastsToEveryClient(t *testing.T) {
	r, svc, _, first := newTestRoom(t)
	second := client.NewFakeConnection()
	r.AddClient(client.NewClient("c2", "s1", second))

	e := game.NewDefault()
	_, err := e.DropPiece(2)
	require.NoError(t, err)
	svc.EXPECT().Get(gomock.Any(), "s1").Return(&repository.Session{ID: "s1", Engine: e}, nil)

	r.Refresh(context.Background())

	for _, conn := range []*client.FakeConnection{first, second} {
		msg := lastMessage(t, conn)
		assert.Equal(t, proto.TypeState, msg.Type)
		assert.Equal(t, game.Player2, msg.Next)
		assert.Equal(t, 1, msg.Moves)
	}
}

func TestRefreshOfMissingSessionEndsRoom(t *testing.T) {
	r, svc, _, conn := newTestRoom(t)
	svc.EXPECT().Get(gomock.Any(), "s1").Return(nil, repository.ErrSessionNotFound)

	r.Refresh(context.Background())

	assert.Equal(t, "session ended", lastMessage(t, conn).Reason)
	assert.True(t, conn.Closed())
}

func TestRemoveClient(t *testing.T) {
	r, _, c, _ := newTestRoom(t)
	other := client.NewClient("c2", "s1", client.NewFakeConnection())
	r.AddClient(other)

	assert.Equal(t, 1, r.RemoveClient(c))
	assert.Equal(t, 0, r.RemoveClient(other))
	assert.Empty(t, r.Clients())
}
