package chx_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcodd23/go-chpool/pkg/chx"
	"github.com/marcodd23/go-chpool/pkg/configmgr"
	"github.com/marcodd23/go-chpool/pkg/errorx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("dial tcp 127.0.0.1:8123: connect: connection refused")

func newTestManager(t *testing.T, client *fakeClient, opts ...chx.Option) *chx.ConnectionManager {
	t.Helper()

	manager, err := chx.NewConnectionManager(testConnConfig(), fixedFactory(client, nil), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return manager
}

func TestNewConnectionManager_InvalidConfig(t *testing.T) {
	cfg := testConnConfig()
	cfg.URL = ""

	_, err := chx.NewConnectionManager(cfg, fixedFactory(&fakeClient{}, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConnConfig.URL")

	var generalErr *errorx.GeneralError
	assert.ErrorAs(t, err, &generalErr)
}

func TestNewConnectionManager_NilFactory(t *testing.T) {
	_, err := chx.NewConnectionManager(testConnConfig(), nil)
	require.Error(t, err)
}

func TestNewConnectionManager_AppliesDefaults(t *testing.T) {
	manager := newTestManager(t, &fakeClient{})

	assert.Equal(t, chx.DefaultDialTimeout, manager.GetConnectionConfig().DialTimeout)
	assert.Equal(t, "default", manager.GetConnectionConfig().Database)
}

func TestNewConnConfig_FromServiceConfig(t *testing.T) {
	cfg := chx.NewConnConfig(&configmgr.ClickHouseConfig{
		URL:          "http://localhost:8123",
		User:         "default",
		Database:     "events",
		QueryTimeout: time.Second,
	})

	assert.Equal(t, "events", cfg.Database)
	assert.Equal(t, time.Second, cfg.QueryTimeout)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, chx.NewConnConfig(nil).Validate())
}

func TestConnect_SharesManagerRuntime(t *testing.T) {
	var calls atomic.Int32
	manager, err := chx.NewConnectionManager(testConnConfig(), fixedFactory(&fakeClient{}, &calls), chx.WithWorkers(3))
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	first, err := manager.Connect(ctx)
	require.NoError(t, err)
	second, err := manager.Connect(ctx)
	require.NoError(t, err)

	assert.Same(t, manager.Runtime(), first.Runtime())
	assert.Same(t, manager.Runtime(), second.Runtime())
	assert.Equal(t, 3, manager.Runtime().Workers())
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, int32(2), calls.Load())
}

func TestConnect_FactoryErrorIsDatabaseError(t *testing.T) {
	factory := func(cfg chx.ConnConfig) (chx.Client, error) {
		return nil, errors.New("invalid port")
	}

	manager, err := chx.NewConnectionManager(testConnConfig(), factory)
	require.NoError(t, err)
	defer manager.Close()

	conn, err := manager.Connect(context.Background())
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.True(t, errorx.IsDatabaseError(err))
	assert.Contains(t, err.Error(), "invalid port")
}

func TestIsValid_RunsHealthCheckQuery(t *testing.T) {
	client := &fakeClient{rows: []string{"1"}}
	manager := newTestManager(t, client)

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, manager.IsValid(context.Background(), conn))
	assert.Equal(t, []string{chx.HealthCheckQuery}, client.Queries())
}

func TestIsValid_ReturnsClientError(t *testing.T) {
	manager := newTestManager(t, &fakeClient{err: errRefused})

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	err = manager.IsValid(context.Background(), conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, errRefused)
	assert.True(t, errorx.IsDatabaseError(err))
}

func TestIsValid_ClientPanicIsReturned(t *testing.T) {
	manager := newTestManager(t, &fakeClient{panicMsg: "unexpected packet"})

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		err = manager.IsValid(context.Background(), conn)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected packet")
}

func TestIsValid_NilConnection(t *testing.T) {
	manager := newTestManager(t, &fakeClient{})
	assert.Error(t, manager.IsValid(context.Background(), nil))
}

func TestIsValid_QueryTimeout(t *testing.T) {
	cfg := testConnConfig()
	cfg.QueryTimeout = 50 * time.Millisecond

	manager, err := chx.NewConnectionManager(cfg, fixedFactory(&fakeClient{block: true}, nil))
	require.NoError(t, err)
	defer manager.Close()

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	err = manager.IsValid(context.Background(), conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithQueryTimeout_OverridesConfig(t *testing.T) {
	manager := newTestManager(t, &fakeClient{block: true}, chx.WithQueryTimeout(30*time.Millisecond))
	assert.Equal(t, 30*time.Millisecond, manager.GetConnectionConfig().QueryTimeout)

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	start := time.Now()
	err = manager.IsValid(context.Background(), conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWithQueryTimeout_NegativeRejected(t *testing.T) {
	_, err := chx.NewConnectionManager(testConnConfig(), fixedFactory(&fakeClient{}, nil), chx.WithQueryTimeout(-time.Second))
	require.Error(t, err)
}

func TestIsValid_ConnectionsRunConcurrently(t *testing.T) {
	const conns = 6

	b := newBarrier(conns)
	clients := make([]*fakeClient, conns)
	for i := range clients {
		clients[i] = &fakeClient{rows: []string{"1"}, barrier: b}
	}

	manager, err := chx.NewConnectionManager(testConnConfig(), sequenceFactory(clients...), chx.WithWorkers(0))
	require.NoError(t, err)
	defer manager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errs := make(chan error, conns)
	for i := 0; i < conns; i++ {
		conn, err := manager.Connect(ctx)
		require.NoError(t, err)

		go func() {
			errs <- manager.IsValid(ctx, conn)
		}()
	}

	// every check only completes once all of them are in flight
	for i := 0; i < conns; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestIsValid_HungConnectionDoesNotBlockOthers(t *testing.T) {
	hung := &fakeClient{block: true}
	healthy := &fakeClient{rows: []string{"1"}}
	manager, err := chx.NewConnectionManager(testConnConfig(), sequenceFactory(hung, healthy))
	require.NoError(t, err)
	defer manager.Close()

	hungCtx, cancelHung := context.WithCancel(context.Background())
	defer cancelHung()

	hungConn, err := manager.Connect(context.Background())
	require.NoError(t, err)
	healthyConn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	hungDone := make(chan error, 1)
	go func() {
		_, err := hungConn.Query(hungCtx, "SELECT sleep(3600)")
		hungDone <- err
	}()

	require.Eventually(t, func() bool { return len(hung.Queries()) == 1 }, 5*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, manager.IsValid(ctx, healthyConn))

	cancelHung()
	assert.ErrorIs(t, <-hungDone, context.Canceled)
}

func TestHasBroken_FalseByDefault(t *testing.T) {
	manager := newTestManager(t, &fakeClient{err: errRefused})

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, manager.HasBroken(conn))

	require.Error(t, manager.IsValid(context.Background(), conn))
	assert.True(t, conn.LastCallFailed())
	assert.False(t, manager.HasBroken(conn))
}

func TestHasBroken_WithBrokenTracking(t *testing.T) {
	client := &fakeClient{err: errRefused}
	manager := newTestManager(t, client, chx.WithBrokenTracking(true))

	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)
	assert.False(t, manager.HasBroken(conn))

	_, err = conn.Query(context.Background(), "SELECT version()")
	require.Error(t, err)
	assert.True(t, manager.HasBroken(conn))
}

func TestClone_UsedFromAnotherGoroutine(t *testing.T) {
	manager := newTestManager(t, &fakeClient{rows: []string{"1"}})
	clone := manager.Clone()
	defer clone.Close()

	assert.Same(t, manager.Runtime(), clone.Runtime())
	assert.Equal(t, manager.GetConnectionConfig(), clone.GetConnectionConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		conn, err := clone.Connect(context.Background())
		if !assert.NoError(t, err) {
			return
		}
		assert.Same(t, manager.Runtime(), conn.Runtime())

		rows, err := conn.Query(context.Background(), chx.HealthCheckQuery)
		assert.NoError(t, err)
		assert.Equal(t, []string{"1"}, rows)
	}()
	wg.Wait()
}

func TestClose_ConnectionsKeepRuntimeAlive(t *testing.T) {
	client := &fakeClient{rows: []string{"1"}}
	manager, err := chx.NewConnectionManager(testConnConfig(), fixedFactory(client, nil))
	require.NoError(t, err)

	clone := manager.Clone()
	conn, err := manager.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())
	assert.False(t, conn.Runtime().Closed())

	require.NoError(t, clone.Close())
	assert.NoError(t, manager.IsValid(context.Background(), conn))

	require.NoError(t, manager.CloseConnection(conn))
	assert.True(t, client.closed.Load())
	assert.True(t, conn.Runtime().Closed())

	_, err = manager.Connect(context.Background())
	assert.Error(t, err)
}

func TestWithRuntime_SharedAcrossManagers(t *testing.T) {
	rt, err := chx.NewRuntime(2)
	require.NoError(t, err)

	first := newTestManager(t, &fakeClient{}, chx.WithRuntime(rt))
	second := newTestManager(t, &fakeClient{}, chx.WithRuntime(rt))
	assert.Same(t, first.Runtime(), second.Runtime())

	require.NoError(t, rt.Close())
	assert.False(t, rt.Closed())

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
	assert.True(t, rt.Closed())

	_, err = chx.NewConnectionManager(testConnConfig(), fixedFactory(&fakeClient{}, nil), chx.WithRuntime(rt))
	assert.ErrorIs(t, err, chx.ErrRuntimeClosed)
}
