package types

import (
	"context"

	"ctchen222/Connect-Four/internal/client"
)

// RegistrationRequest attaches a client to the room of its session.
type RegistrationRequest struct {
	Client *client.Client
	Ctx    context.Context
}

// ClientMessage is a raw frame read from a client.
type ClientMessage struct {
	Client  *client.Client
	Message []byte
}
