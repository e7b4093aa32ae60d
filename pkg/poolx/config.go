package poolx

import (
	"time"

	"github.com/marcodd23/go-chpool/pkg/configmgr"
	"github.com/marcodd23/go-chpool/pkg/errorx"
	"github.com/marcodd23/go-chpool/pkg/validator"
)

const (
	DefaultMaxSize           = 10
	DefaultConnectionTimeout = 30 * time.Second
)

// Config represents the sizing and checkout behaviour of a Pool.
type Config struct {
	MaxSize           int32         `validate:"gt=0"`
	MinIdle           int32         `validate:"gte=0,ltefield=MaxSize"`
	ConnectionTimeout time.Duration `validate:"gte=0"`
	TestOnCheckout    bool
}

// DefaultConfig returns a pool of DefaultMaxSize connections validated on checkout.
func DefaultConfig() Config {
	return Config{
		MaxSize:           DefaultMaxSize,
		ConnectionTimeout: DefaultConnectionTimeout,
		TestOnCheckout:    true,
	}
}

// NewConfig builds a Config from the pool section of the service configuration.
func NewConfig(cfg *configmgr.PoolConfig) Config {
	if cfg == nil {
		return DefaultConfig()
	}

	return Config{
		MaxSize:           cfg.MaxSize,
		MinIdle:           cfg.MinIdle,
		ConnectionTimeout: cfg.ConnectionTimeout,
		TestOnCheckout:    cfg.TestOnCheckout,
	}
}

func (c Config) validate() error {
	if err := validator.NewValidator().Validate(c); err != nil {
		return errorx.NewGeneralErrorWrapper(err, "invalid connection pool config")
	}

	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMaxSize
	}

	return c
}
