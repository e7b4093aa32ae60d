package poolx

import "context"

// ManageConnection is what a Pool needs from its user to manage connections of type C.
type ManageConnection[C any] interface {
	// Connect creates a new connection.
	Connect(ctx context.Context) (C, error)
	// IsValid checks conn before it is handed to a caller.
	IsValid(ctx context.Context, conn C) error
	// HasBroken reports, without I/O, whether a returned conn must be discarded.
	HasBroken(conn C) bool
}

// ConnectionCloser is implemented by managers whose connections hold resources
// that must be released when the pool evicts them.
type ConnectionCloser[C any] interface {
	CloseConnection(conn C) error
}
