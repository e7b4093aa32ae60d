package clickhouse

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/marcodd23/go-chpool/pkg/configmgr"
	"github.com/marcodd23/go-chpool/pkg/logx"
	"github.com/marcodd23/go-chpool/test"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	clickhouseContainerImage = "docker.io/clickhouse/clickhouse-server:24.8-alpine"
	clickhouseHTTPPort       = "8123/tcp"

	MainDbName     = "default"
	MainDbUser     = "default"
	MainDbPassword = "password"
)

// ClickHouseContainer represents the ClickHouse container used by integration tests.
type ClickHouseContainer struct {
	Container  testcontainers.Container
	MappedPort nat.Port
	Host       string
	DbName     string
	DbUser     string
	DbPassword string
}

// StartClickHouseContainer starts a ClickHouse server seeded with init_schema.sql.
func StartClickHouseContainer(ctx context.Context, t *testing.T) *ClickHouseContainer {
	test.ConfigTestRootPath()

	initScript, err := filepath.Abs(filepath.Join("test/testcontainer/clickhouse", "init_schema.sql"))
	require.NoError(t, err)

	req := testcontainers.ContainerRequest{
		Image:        clickhouseContainerImage,
		ExposedPorts: []string{clickhouseHTTPPort},
		Env: map[string]string{
			"CLICKHOUSE_DB":       MainDbName,
			"CLICKHOUSE_USER":     MainDbUser,
			"CLICKHOUSE_PASSWORD": MainDbPassword,
		},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      initScript,
				ContainerFilePath: "/docker-entrypoint-initdb.d/init_schema.sql",
				FileMode:          0o644,
			},
		},
		WaitingFor: wait.ForHTTP("/ping").
			WithPort(clickhouseHTTPPort).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	require.NotNil(t, container)

	mappedPort, err := container.MappedPort(ctx, clickhouseHTTPPort)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	log.Printf("ClickHouse running at %s:%s", host, mappedPort.Port())

	return &ClickHouseContainer{
		Container:  container,
		MappedPort: mappedPort,
		Host:       host,
		DbName:     MainDbName,
		DbUser:     MainDbUser,
		DbPassword: MainDbPassword,
	}
}

// StopContainer terminates the container.
func (c *ClickHouseContainer) StopContainer(ctx context.Context, t *testing.T) {
	logx.GetLogger().LogInfo(ctx, "Terminating the Container ....")
	err := c.Container.Terminate(ctx)
	require.NoError(t, err, fmt.Sprintf("error terminating the Container %v", err))
}

// ClickHouseConfig returns the connection settings of the running container.
func (c *ClickHouseContainer) ClickHouseConfig() *configmgr.ClickHouseConfig {
	return &configmgr.ClickHouseConfig{
		URL:         fmt.Sprintf("http://%s:%s", c.Host, c.MappedPort.Port()),
		User:        c.DbUser,
		Password:    c.DbPassword,
		Database:    c.DbName,
		DialTimeout: 5 * time.Second,
	}
}
