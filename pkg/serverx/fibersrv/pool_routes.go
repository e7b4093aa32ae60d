package fibersrv

import (
	"github.com/gofiber/fiber/v2"
	"github.com/marcodd23/go-chpool/pkg/logx"
	"github.com/marcodd23/go-chpool/pkg/poolx"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterPoolRoutes exposes GET <prefix>/health, which checks out a connection
// and validates it, and GET <prefix>/stats with the pool snapshot. The checkout
// already validates when the pool tests on checkout, otherwise the handler
// calls IsValid itself.
func RegisterPoolRoutes[C any](router fiber.Router, pool *poolx.Pool[C], manager poolx.ManageConnection[C]) {
	router.Get("/health", func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		pooled, err := pool.Get(ctx)
		if err != nil {
			logx.GetLogger().LogWarning(ctx, "health check: checkout failed", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "DOWN", Error: err.Error()})
		}
		defer pooled.Release()

		if !pool.Config().TestOnCheckout {
			if err = manager.IsValid(ctx, pooled.Conn()); err != nil {
				logx.GetLogger().LogWarning(ctx, "health check: validation failed", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{Status: "DOWN", Error: err.Error()})
			}
		}

		return c.JSON(HealthResponse{Status: "UP"})
	})

	router.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(pool.Stats())
	})
}
