package chx

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marcodd23/go-chpool/pkg/errorx"
)

// ManagedConnection is one pooled slot: a client bound to the manager's
// configuration plus a reference to the manager's Runtime.
//
// It owns no socket of its own; network sessions belong to the client. Every call
// is driven to completion on the shared Runtime before returning.
type ManagedConnection struct {
	id           uuid.UUID
	client       Client
	rt           *Runtime
	queryTimeout time.Duration

	// failed records whether the most recent call returned an error.
	failed atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func newManagedConnection(client Client, rt *Runtime, queryTimeout time.Duration) *ManagedConnection {
	return &ManagedConnection{
		id:           uuid.New(),
		client:       client,
		rt:           rt.Retain(),
		queryTimeout: queryTimeout,
	}
}

// ID identifies the connection in logs.
func (c *ManagedConnection) ID() uuid.UUID {
	return c.id
}

// Client returns the underlying client.
func (c *ManagedConnection) Client() Client {
	return c.client
}

// Runtime returns the execution context the connection runs its calls on.
func (c *ManagedConnection) Runtime() *Runtime {
	return c.rt
}

// Query runs query and returns the first column of every row as text.
func (c *ManagedConnection) Query(ctx context.Context, query string, args ...any) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rows, err := BlockOnResult(ctx, c.rt, func(ctx context.Context) ([]string, error) {
		return c.client.Query(ctx, query, args...)
	})

	c.failed.Store(err != nil)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "error executing query '%s'", query)
	}

	return rows, nil
}

// Exec runs a statement that returns no rows.
func (c *ManagedConnection) Exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	err := c.rt.BlockOn(ctx, func(ctx context.Context) error {
		return c.client.Exec(ctx, query, args...)
	})

	c.failed.Store(err != nil)
	if err != nil {
		return errorx.NewDatabaseErrorWrapper(err, "error executing statement '%s'", query)
	}

	return nil
}

// LastCallFailed reports whether the most recent call on the connection returned an error.
func (c *ManagedConnection) LastCallFailed() bool {
	return c.failed.Load()
}

// Close releases the client and the connection's Runtime reference. It is safe to
// call more than once.
func (c *ManagedConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.client.Close()
		_ = c.rt.Close()
	})

	return c.closeErr
}

func (c *ManagedConnection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout > 0 {
		return context.WithTimeout(ctx, c.queryTimeout)
	}

	return ctx, func() {}
}
