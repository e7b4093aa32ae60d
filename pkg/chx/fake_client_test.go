package chx_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/marcodd23/go-chpool/pkg/chx"
)

// fakeClient answers every query with rows unless err is set.
type fakeClient struct {
	rows     []string
	err      error
	block    bool
	panicMsg string
	barrier  *barrier

	mu      sync.Mutex
	queries []string
	closed  atomic.Bool
}

func (f *fakeClient) Query(ctx context.Context, query string, _ ...any) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if f.barrier != nil {
		if err := f.barrier.await(ctx); err != nil {
			return nil, err
		}
	}

	if f.err != nil {
		return nil, f.err
	}

	return f.rows, nil
}

func (f *fakeClient) Exec(ctx context.Context, query string, args ...any) error {
	_, err := f.Query(ctx, query, args...)
	return err
}

func (f *fakeClient) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeClient) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.queries...)
}

// fixedFactory hands out the same client and counts calls.
func fixedFactory(client *fakeClient, calls *atomic.Int32) chx.ClientFactory {
	return func(cfg chx.ConnConfig) (chx.Client, error) {
		if calls != nil {
			calls.Add(1)
		}
		return client, nil
	}
}

// sequenceFactory hands out clients in order, one per Connect.
func sequenceFactory(clients ...*fakeClient) chx.ClientFactory {
	var next atomic.Int32
	return func(cfg chx.ConnConfig) (chx.Client, error) {
		return clients[int(next.Add(1)-1)%len(clients)], nil
	}
}

// barrier releases its waiters once parties calls are waiting at the same time.
type barrier struct {
	parties int32
	arrived atomic.Int32
	all     chan struct{}
}

func newBarrier(parties int) *barrier {
	return &barrier{parties: int32(parties), all: make(chan struct{})}
}

func (b *barrier) await(ctx context.Context) error {
	if b.arrived.Add(1) == b.parties {
		close(b.all)
	}

	select {
	case <-b.all:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func testConnConfig() chx.ConnConfig {
	return chx.ConnConfig{
		URL:      "http://localhost:8123",
		User:     "default",
		Database: "default",
	}
}
