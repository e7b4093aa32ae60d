package configmgr

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const defaultConfigBaseName = "property"

// Defaults for the ClickHouse section. They match a stock local server.
const (
	DefaultClickHouseURL      = "http://localhost:8123"
	DefaultClickHouseUser     = "default"
	DefaultClickHousePassword = ""
	DefaultClickHouseDatabase = "default"
)

func LoadConfigForEnv(config Config) error {
	return ReadConfiguration(getEnvPropertyFileName(defaultConfigBaseName), config)
}

// LoadConfigFromPathForEnv - search the property-<ENV> properties in the given search path (for ex. "./config" )
func LoadConfigFromPathForEnv(searchPath string, config Config) error {
	if searchPath == "" {
		return LoadConfigForEnv(config)
	}

	searchPath = strings.TrimSuffix(searchPath, "/")
	return ReadConfiguration(getEnvPropertyFileName(fmt.Sprintf("%s/%s", searchPath, defaultConfigBaseName)), config)
}

// ReadConfiguration reads the configuration from the file and environment variables
func ReadConfiguration(configFilePath string, config any) error {
	log.Println("config filepath: ", configFilePath)

	v := newViper()
	v.SetConfigFile(configFilePath) // Specify the file to read
	v.SetConfigType("yaml")         // Specify the config file type (yaml)

	// Attempt to read the configuration file
	if err := v.ReadInConfig(); err == nil {
		log.Printf("Reading configuration from config file: %s\nSet environment variables will OVERRIDE these values, as the environment takes precedent.", configFilePath)
	} else {
		log.Println("No configuration file found, reading configuration from environment variables.")
	}

	// Unmarshal the configuration into the provided struct
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unable to decode into config struct, %v", err)
	}

	return nil
}

// LoadClickHouseTestConfig reads the ClickHouse endpoint used by integration tests
// from CLICKHOUSE_URL, CLICKHOUSE_USER, CLICKHOUSE_PASSWORD and CLICKHOUSE_DATABASE,
// falling back to a local server with the default account.
func LoadClickHouseTestConfig() (*ClickHouseConfig, error) {
	var cfg struct {
		ClickHouse *ClickHouseConfig `mapstructure:"clickhouse"`
	}

	if err := newViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode clickhouse test config, %v", err)
	}

	return cfg.ClickHouse, nil
}

// newViper returns a viper instance bound to the environment. Every key gets a
// default so that AutomaticEnv also applies when no file declares it.
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv() // Enable automatic environment variable binding

	// Replace dots in keys with underscores in environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("clickhouse.url", DefaultClickHouseURL)
	v.SetDefault("clickhouse.user", DefaultClickHouseUser)
	v.SetDefault("clickhouse.password", DefaultClickHousePassword)
	v.SetDefault("clickhouse.database", DefaultClickHouseDatabase)
	v.SetDefault("clickhouse.dialTimeout", "10s")
	v.SetDefault("clickhouse.queryTimeout", "0s")
	v.SetDefault("pool.maxSize", 10)
	v.SetDefault("pool.minIdle", 0)
	v.SetDefault("pool.connectionTimeout", "30s")
	v.SetDefault("pool.testOnCheckout", true)
	v.SetDefault("runtime.workers", 0)

	return v
}

func getEnvPropertyFileName(baseFileName string) string {
	env := strings.ToUpper(os.Getenv("ENVIRONMENT"))
	if !checkIfLocalEnv(env) {
		return fmt.Sprintf("%s-%s.yaml", baseFileName, strings.ToLower(env))
	}

	return fmt.Sprintf("%s.yaml", baseFileName)
}

func checkIfLocalEnv(env string) bool {
	switch strings.ToUpper(env) {
	case "DEV", "STAGE", "PROD":
		return false
	}

	return true
}
