package configmgr

import "time"

// Config - config interface.
type Config interface {
	GetServiceName() string
	GetVersion() string
	GetEnvironment() string
	GetServerConfig() *ServerConfig
	GetLoggingConfig() *LoggingConfig
	GetClickHouseConfig() *ClickHouseConfig
	GetPoolConfig() *PoolConfig
	GetRuntimeConfig() *RuntimeConfig
	IsLocalEnvironment() bool
}

// BaseConfig - app config struct.
// This struct represents the base configuration for the application and is expected to be in the following YAML format:
/*
name: "TestApp"
environment: "development"
version: "1.0"
logging:
  level: "debug"
clickhouse:
  url: "http://localhost:8123"
  user: "default"
  password: ""
  database: "default"
  dialTimeout: 10s
  queryTimeout: 0s
pool:
  maxSize: 10
  minIdle: 0
  connectionTimeout: 30s
  testOnCheckout: true
runtime:
  workers: 0
server:
  port: "8080"
  concurrency: 10
  disableStartupMsg: false
*/
type BaseConfig struct {
	Name        string            `mapstructure:"name"`
	Environment string            `mapstructure:"environment"`
	Version     string            `mapstructure:"version"`
	Logging     *LoggingConfig    `mapstructure:"logging"`
	Server      *ServerConfig     `mapstructure:"server"`
	ClickHouse  *ClickHouseConfig `mapstructure:"clickhouse"`
	Pool        *PoolConfig       `mapstructure:"pool"`
	Runtime     *RuntimeConfig    `mapstructure:"runtime"`
}

type ServerConfig struct {
	Port                  string `mapstructure:"port"`
	Concurrency           int    `mapstructure:"concurrency"`
	DisableStartupMessage bool   `mapstructure:"disableStartupMsg"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ClickHouseConfig - endpoint and credentials of the ClickHouse server.
type ClickHouseConfig struct {
	URL          string        `mapstructure:"url"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Database     string        `mapstructure:"database"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	QueryTimeout time.Duration `mapstructure:"queryTimeout"`
}

// PoolConfig - sizing and checkout behaviour of the connection pool.
type PoolConfig struct {
	MaxSize           int32         `mapstructure:"maxSize"`
	MinIdle           int32         `mapstructure:"minIdle"`
	ConnectionTimeout time.Duration `mapstructure:"connectionTimeout"`
	TestOnCheckout    bool          `mapstructure:"testOnCheckout"`
}

// RuntimeConfig - size of the shared execution context.
type RuntimeConfig struct {
	Workers int `mapstructure:"workers"`
}

func (cfg BaseConfig) GetServiceName() string {
	return cfg.Name
}

func (cfg BaseConfig) GetVersion() string {
	return cfg.Version
}

func (cfg BaseConfig) GetEnvironment() string {
	return cfg.Environment
}

func (cfg BaseConfig) IsLocalEnvironment() bool {
	return checkIfLocalEnv(cfg.Environment)
}

func (cfg BaseConfig) GetServerConfig() *ServerConfig {
	return cfg.Server
}

func (cfg BaseConfig) GetLoggingConfig() *LoggingConfig {
	return cfg.Logging
}

func (cfg BaseConfig) GetClickHouseConfig() *ClickHouseConfig {
	return cfg.ClickHouse
}

func (cfg BaseConfig) GetPoolConfig() *PoolConfig {
	return cfg.Pool
}

func (cfg BaseConfig) GetRuntimeConfig() *RuntimeConfig {
	return cfg.Runtime
}
