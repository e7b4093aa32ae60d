package fibersrv

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/marcodd23/go-chpool/pkg/configmgr"
	"github.com/marcodd23/go-chpool/pkg/logx"
	"github.com/marcodd23/go-chpool/pkg/serverx"
)

const defaultPort = "8080"

// FiberServer - Fiber server.
type FiberServer struct {
	Server *fiber.App
	config configmgr.Config
}

// NewFiberServer - Fiber server constructor.
func NewFiberServer(config configmgr.Config) serverx.Server[*fiber.App] {
	return &FiberServer{
		Server: fiber.New(buildFiberConfig(config)),
		config: config,
	}
}

func buildFiberConfig(config configmgr.Config) fiber.Config {
	fiberConfig := fiber.Config{
		AppName:       config.GetServiceName(),
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
		JSONEncoder:   json.Marshal,
		JSONDecoder:   json.Unmarshal,
	}

	if serverConfig := config.GetServerConfig(); serverConfig != nil {
		fiberConfig.Concurrency = serverConfig.Concurrency
		fiberConfig.DisableStartupMessage = serverConfig.DisableStartupMessage
	}

	return fiberConfig
}

// GetServer - return the fiber server.
func (srv *FiberServer) GetServer() *fiber.App {
	return srv.Server
}

// RunSync - Run the server and block until it stops.
func (srv *FiberServer) RunSync() error {
	return srv.listen()
}

// RunAsync - Run the server in a new goroutine.
func (srv *FiberServer) RunAsync() {
	go func() {
		if err := srv.listen(); err != nil {
			logx.GetLogger().LogError(context.TODO(), "Oops... server is not running! error:", err)
		}
	}()
}

// Setup - Receive a callback function setupFunc that let to configure the server.
func (srv *FiberServer) Setup(ctx context.Context, setupFunc func(fiber *fiber.App)) {
	setupFunc(srv.Server)
}

// Shutdown - shutdown the server.
func (srv *FiberServer) Shutdown(ctx context.Context) error {
	if err := srv.Server.ShutdownWithContext(ctx); err != nil {
		logx.GetLogger().LogError(ctx, "Error shutting down the Server", err)
		return err
	}

	logx.GetLogger().LogInfo(ctx, "Server shut down.. ")
	return nil
}

func (srv *FiberServer) listen() error {
	port := defaultPort
	if serverConfig := srv.config.GetServerConfig(); serverConfig != nil && serverConfig.Port != "" {
		port = serverConfig.Port
	}

	return srv.Server.Listen(fmt.Sprintf(":%s", port))
}
