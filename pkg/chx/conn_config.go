package chx

import (
	"time"

	"github.com/marcodd23/go-chpool/pkg/configmgr"
	"github.com/marcodd23/go-chpool/pkg/errorx"
	"github.com/marcodd23/go-chpool/pkg/validator"
)

// DefaultDialTimeout is applied when ConnConfig.DialTimeout is zero.
const DefaultDialTimeout = 10 * time.Second

// ConnConfig represents the configuration required to reach a ClickHouse server.
//
// It is the prototype every ManagedConnection is created from and is copied by
// value, so a manager and its clones never observe each other's changes.
// QueryTimeout bounds each delegated call; zero leaves calls bounded only by the
// caller's context.
type ConnConfig struct {
	URL          string `validate:"required,url"`
	User         string `validate:"required"`
	Password     string
	Database     string        `validate:"required"`
	DialTimeout  time.Duration `validate:"gte=0"`
	QueryTimeout time.Duration `validate:"gte=0"`
}

// NewConnConfig builds a ConnConfig from the clickhouse section of the service configuration.
func NewConnConfig(cfg *configmgr.ClickHouseConfig) ConnConfig {
	if cfg == nil {
		return ConnConfig{}
	}

	return ConnConfig{
		URL:          cfg.URL,
		User:         cfg.User,
		Password:     cfg.Password,
		Database:     cfg.Database,
		DialTimeout:  cfg.DialTimeout,
		QueryTimeout: cfg.QueryTimeout,
	}
}

// Validate checks the configuration and returns a *errorx.GeneralError wrapping the
// validation details when it is not usable.
func (c ConnConfig) Validate() error {
	if err := validator.NewValidator().Validate(c); err != nil {
		return errorx.NewGeneralErrorWrapper(err, "invalid clickhouse connection config")
	}

	return nil
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}

	return c
}
