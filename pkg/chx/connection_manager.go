package chx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcodd23/go-chpool/pkg/errorx"
	"github.com/marcodd23/go-chpool/pkg/logx"
	"github.com/marcodd23/go-chpool/pkg/poolx"
)

var (
	_ poolx.ManageConnection[*ManagedConnection] = (*ConnectionManager)(nil)
	_ poolx.ConnectionCloser[*ManagedConnection] = (*ConnectionManager)(nil)
)

// HealthCheckQuery is the round trip IsValid performs.
const HealthCheckQuery = "SELECT 1"

// ConnectionManager produces and validates ClickHouse connections on
// behalf of a pool. It implements poolx.ManageConnection[*ManagedConnection].
//
// The manager is immutable after construction. Clone shares the Runtime, so one
// scheduling context serves the whole pool however many goroutines or manager
// copies use it.
type ConnectionManager struct {
	config      ConnConfig
	factory     ClientFactory
	rt          *Runtime
	trackBroken bool

	closeOnce sync.Once
}

type managerOptions struct {
	runtime      *Runtime
	workers      int
	trackBroken  bool
	queryTimeout *time.Duration
}

// Option configures a ConnectionManager.
type Option func(*managerOptions)

// WithRuntime makes the manager share rt instead of allocating its own.
func WithRuntime(rt *Runtime) Option {
	return func(o *managerOptions) {
		o.runtime = rt
	}
}

// WithWorkers caps the concurrent calls of the Runtime the manager allocates.
// Zero, the default, leaves them unbounded.
func WithWorkers(workers int) Option {
	return func(o *managerOptions) {
		o.workers = workers
	}
}

// WithBrokenTracking makes HasBroken report connections whose most recent call
// failed. Without it HasBroken always reports false.
func WithBrokenTracking(enabled bool) Option {
	return func(o *managerOptions) {
		o.trackBroken = enabled
	}
}

// WithQueryTimeout bounds every call a connection delegates to the client,
// overriding ConnConfig.QueryTimeout. Zero disables the bound.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(o *managerOptions) {
		o.queryTimeout = &timeout
	}
}

// NewConnectionManager validates cfg and allocates the manager's Runtime.
func NewConnectionManager(cfg ConnConfig, factory ClientFactory, opts ...Option) (*ConnectionManager, error) {
	if factory == nil {
		return nil, errorx.NewGeneralError("clickhouse client factory is nil")
	}

	var options managerOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.queryTimeout != nil {
		cfg.QueryTimeout = *options.queryTimeout
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := options.runtime
	if rt != nil {
		if rt.Closed() {
			return nil, ErrRuntimeClosed
		}
		rt.Retain()
	} else {
		var err error
		if rt, err = NewRuntime(options.workers); err != nil {
			return nil, errorx.NewGeneralErrorWrapper(err, "error allocating the execution runtime")
		}
	}

	return &ConnectionManager{
		config:      cfg,
		factory:     factory,
		rt:          rt,
		trackBroken: options.trackBroken,
	}, nil
}

// Clone returns a manager with the same configuration sharing the same Runtime.
// The clone holds its own Runtime reference and must be closed independently.
func (m *ConnectionManager) Clone() *ConnectionManager {
	return &ConnectionManager{
		config:      m.config,
		factory:     m.factory,
		rt:          m.rt.Retain(),
		trackBroken: m.trackBroken,
	}
}

// GetConnectionConfig returns the prototype configuration.
func (m *ConnectionManager) GetConnectionConfig() ConnConfig {
	return m.config
}

// Runtime returns the shared execution context.
func (m *ConnectionManager) Runtime() *Runtime {
	return m.rt
}

// Connect creates a connection bound to the manager's configuration and Runtime.
// No network I/O happens here: an unreachable server is only detected on first use.
func (m *ConnectionManager) Connect(ctx context.Context) (*ManagedConnection, error) {
	if m.rt.Closed() {
		return nil, errorx.NewDatabaseErrorWrapper(ErrRuntimeClosed, "error creating clickhouse connection")
	}

	client, err := m.factory(m.config)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "error creating clickhouse client for %s", m.config.URL)
	}

	conn := newManagedConnection(client, m.rt, m.config.QueryTimeout)
	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("Created ClickHouse connection %s: URL=%s, DB=%s", conn.ID(), m.config.URL, m.config.Database))

	return conn, nil
}

// IsValid runs HealthCheckQuery on conn and returns the failure, if any.
func (m *ConnectionManager) IsValid(ctx context.Context, conn *ManagedConnection) error {
	if conn == nil {
		return errorx.NewDatabaseError("error validating connection: connection is nil")
	}

	if _, err := conn.Query(ctx, HealthCheckQuery); err != nil {
		logx.GetLogger().LogWarning(ctx, fmt.Sprintf("ClickHouse connection %s failed validation", conn.ID()), err)
		return errorx.NewDatabaseErrorWrapper(err, "connection %s failed validation", conn.ID())
	}

	return nil
}

// HasBroken reports whether conn is known to be unusable without issuing a request.
//
// The ClickHouse client exposes no liveness state, so this is false unless the
// manager was built WithBrokenTracking, in which case it reports whether the
// connection's most recent call failed.
func (m *ConnectionManager) HasBroken(conn *ManagedConnection) bool {
	return m.trackBroken && conn != nil && conn.LastCallFailed()
}

// CloseConnection releases conn. The pool calls it when evicting a connection.
func (m *ConnectionManager) CloseConnection(conn *ManagedConnection) error {
	if conn == nil {
		return nil
	}

	if err := conn.Close(); err != nil {
		return errorx.NewDatabaseErrorWrapper(err, "error closing connection %s", conn.ID())
	}

	return nil
}

// Close drops the manager's Runtime reference. Connections still open keep the
// Runtime alive until they are closed.
func (m *ConnectionManager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		err = m.rt.Close()
	})

	return err
}
