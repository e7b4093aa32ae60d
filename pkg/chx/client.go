package chx

import "context"

// Client is the part of a ClickHouse client a ManagedConnection needs.
//
// Implementations must be safe to use from the goroutine the Runtime schedules the
// call on and must honour ctx cancellation.
type Client interface {
	// Query runs a statement and returns the first column of every row rendered as text.
	Query(ctx context.Context, query string, args ...any) ([]string, error)
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...any) error
	// Close releases the client resources.
	Close() error
}

// ClientFactory creates a Client bound to cfg. It must not perform network I/O:
// failures reported here are configuration errors, such as a malformed endpoint.
type ClientFactory func(cfg ConnConfig) (Client, error)
