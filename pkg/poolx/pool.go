package poolx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/puddle/v2"
	"github.com/marcodd23/go-chpool/pkg/errorx"
	"github.com/marcodd23/go-chpool/pkg/logx"
	"github.com/pkg/errors"
)

// ErrPoolClosed is returned by Get once the pool has been closed.
var ErrPoolClosed = errorx.NewGeneralError("connection pool is closed")

// Pool is a bounded, blocking pool of connections created and checked by a
// ManageConnection.
//
// Checkout, checkin, the size bound and the queueing of waiters are delegated to
// puddle. The pool adds the manager contract on top: connections are validated on
// checkout when TestOnCheckout is set, and connections the manager reports as
// broken are discarded on release instead of being returned.
type Pool[C any] struct {
	inner   *puddle.Pool[C]
	manager ManageConnection[C]
	config  Config
}

// New builds a Pool and pre-creates cfg.MinIdle connections.
func New[C any](ctx context.Context, manager ManageConnection[C], cfg Config) (*Pool[C], error) {
	if manager == nil {
		return nil, errorx.NewGeneralError("connection manager is nil")
	}

	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	destructor := func(C) {}
	if closer, ok := manager.(ConnectionCloser[C]); ok {
		destructor = func(conn C) {
			if err := closer.CloseConnection(conn); err != nil {
				logx.GetLogger().LogWarning(context.TODO(), "Error closing evicted connection", err)
			}
		}
	}

	inner, err := puddle.NewPool(&puddle.Config[C]{
		Constructor: manager.Connect,
		Destructor:  destructor,
		MaxSize:     cfg.MaxSize,
	})
	if err != nil {
		return nil, errorx.NewGeneralErrorWrapper(err, "error creating connection pool")
	}

	for i := int32(0); i < cfg.MinIdle; i++ {
		if err := inner.CreateResource(ctx); err != nil {
			inner.Close()
			return nil, errorx.NewGeneralErrorWrapper(err, "error creating idle connection %d of %d", i+1, cfg.MinIdle)
		}
	}

	logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Created new Connection Pool: MAX_SIZE=%d, MIN_IDLE=%d, TEST_ON_CHECKOUT=%t",
		cfg.MaxSize, cfg.MinIdle, cfg.TestOnCheckout))

	return &Pool[C]{
		inner:   inner,
		manager: manager,
		config:  cfg,
	}, nil
}

// Config returns the pool configuration, defaults applied.
func (p *Pool[C]) Config() Config {
	return p.config
}

// Get checks out a connection, blocking until one is free, ctx is done or
// ConnectionTimeout elapses.
//
// With TestOnCheckout, connections failing IsValid are destroyed and replaced; if
// no valid connection is obtained in time the last validation error is returned.
func (p *Pool[C]) Get(ctx context.Context) (*PooledConn[C], error) {
	if p.config.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ConnectionTimeout)
		defer cancel()
	}

	var lastErr error
	retryDelay := newRetryBackOff()

	for {
		res, err := p.inner.Acquire(ctx)
		if err != nil {
			if errors.Is(err, puddle.ErrClosedPool) {
				return nil, ErrPoolClosed
			}

			if lastErr != nil {
				return nil, errors.Wrapf(lastErr, "error acquiring a valid connection from pool (%v)", err)
			}

			return nil, errors.Wrap(err, "error acquiring connection from pool")
		}

		if !p.config.TestOnCheckout {
			return newPooledConn(p, res), nil
		}

		if err := p.manager.IsValid(ctx, res.Value()); err != nil {
			lastErr = err
			res.Destroy()

			select {
			case <-ctx.Done():
			case <-time.After(retryDelay.NextBackOff()):
			}

			continue
		}

		return newPooledConn(p, res), nil
	}
}

// WithConn checks out a connection, runs fn with it and releases it.
func (p *Pool[C]) WithConn(ctx context.Context, fn func(ctx context.Context, conn C) error) error {
	pooled, err := p.Get(ctx)
	if err != nil {
		return err
	}
	defer pooled.Release()

	return fn(ctx, pooled.Conn())
}

// Stats returns a snapshot of the pool state.
func (p *Pool[C]) Stats() Stats {
	return newStats(p.inner.Stat())
}

// Close destroys idle connections and rejects further checkouts. It blocks until
// every checked out connection has been released.
func (p *Pool[C]) Close() {
	p.inner.Close()
	logx.GetLogger().LogInfo(context.TODO(), "Connection Pool Successfully Closed!")
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// PooledConn is a checked out connection. Release must be called exactly once
// the caller is done; further calls are ignored.
type PooledConn[C any] struct {
	pool *Pool[C]
	res  *puddle.Resource[C]
	conn C
	once sync.Once
}

func newPooledConn[C any](p *Pool[C], res *puddle.Resource[C]) *PooledConn[C] {
	return &PooledConn[C]{pool: p, res: res, conn: res.Value()}
}

// Conn returns the connection.
func (pc *PooledConn[C]) Conn() C {
	return pc.conn
}

// Release returns the connection to the pool, or destroys it if the manager
// reports it as broken.
func (pc *PooledConn[C]) Release() {
	pc.once.Do(func() {
		if pc.pool.manager.HasBroken(pc.conn) {
			logx.GetLogger().LogDebug(context.TODO(), "Discarding broken connection on release")
			pc.res.Destroy()
			return
		}

		pc.res.Release()
	})
}

// Discard destroys the connection instead of returning it.
func (pc *PooledConn[C]) Discard() {
	pc.once.Do(pc.res.Destroy)
}
