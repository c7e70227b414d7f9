package contracts

import "context"

// Registry manages the physical client connections on this node and is the
// delivery side of presence: routing decides, the registry pushes.
type Registry interface {
	// Register adds a client to the local node memory.
	Register(c Client)
	// Unregister removes the client unless a newer connection for the same
	// user has already taken its place.
	Unregister(c Client)
	// Push delivers a payload to a specific local client. Returns false if
	// the user has no live connection on this node.
	Push(ctx context.Context, userID string, data []byte) bool
}

// Client represents the minimal interface required for the Registry to
// communicate with an individual WebSocket connection.
type Client interface {
	UserID() string
	ConnectionID() string
	Send(ctx context.Context, data []byte) error
	Close()
}
