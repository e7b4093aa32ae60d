package chgo

import (
	"context"
	"fmt"

	"github.com/marcodd23/go-chpool/pkg/chx"
	"github.com/marcodd23/go-chpool/pkg/configmgr"
	"github.com/marcodd23/go-chpool/pkg/logx"
)

// NewConnectionManager builds a ClickHouse connection manager for the given endpoint
// and credentials, backed by clickhouse-go and a freshly allocated Runtime.
//
// Example Usage:
//
//	manager, err := chgo.NewConnectionManager("http://localhost:8123", "default", "", "default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//
//	pool, err := poolx.New[*chx.ManagedConnection](ctx, manager, poolx.DefaultConfig())
func NewConnectionManager(url, username, password, database string, opts ...chx.Option) (*chx.ConnectionManager, error) {
	return NewConnectionManagerFromConfig(chx.ConnConfig{
		URL:      url,
		User:     username,
		Password: password,
		Database: database,
	}, opts...)
}

// NewConnectionManagerFromConfig is NewConnectionManager for a full ConnConfig.
func NewConnectionManagerFromConfig(cfg chx.ConnConfig, opts ...chx.Option) (*chx.ConnectionManager, error) {
	manager, err := chx.NewConnectionManager(cfg, NewClient, opts...)
	if err != nil {
		return nil, err
	}

	logx.GetLogger().LogInfo(context.TODO(), fmt.Sprintf("Created new ClickHouse Connection Manager: URL=%s, DB=%s, WORKERS=%d",
		cfg.URL, cfg.Database, manager.Runtime().Workers()))

	return manager, nil
}

// SetupClickHouseManager builds a manager from the service configuration.
func SetupClickHouseManager(config configmgr.Config, opts ...chx.Option) (*chx.ConnectionManager, error) {
	if runtimeConfig := config.GetRuntimeConfig(); runtimeConfig != nil {
		opts = append([]chx.Option{chx.WithWorkers(runtimeConfig.Workers)}, opts...)
	}

	return NewConnectionManagerFromConfig(chx.NewConnConfig(config.GetClickHouseConfig()), opts...)
}
