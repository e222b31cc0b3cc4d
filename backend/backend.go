package backend

import "context"

// Backend is used as lifecycle entrypoint for object storage clients.
type Backend interface {
	// Name returns the identifier name defined for this backend
	Name() string
	// Open is part of the lifecycle behaviour and gets called before first use.
	Open(ctx context.Context) error
	// Close is part of the lifecycle behaviour and releases the client.
	Close(ctx context.Context) error
	// IsClosed reports whether the client can no longer serve requests.
	IsClosed() bool

	// GetCapabilities returns a list of capabilities supported by this backend.
	GetCapabilities() *BackendCapabilities
}
