package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Chains     []ChainConfig    `mapstructure:"chains" validate:"min=1,dive"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains ops HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ChainConfig contains the client settings of one chain. BridgeContract and
// SignerKey are optional: a chain without them degrades to the store-only
// rebalance fallback.
type ChainConfig struct {
	Name               string        `mapstructure:"name" validate:"required"`
	RPCURL             string        `mapstructure:"rpc_url" validate:"required"`
	ChainID            int64         `mapstructure:"chain_id" validate:"required"`
	BridgeContract     string        `mapstructure:"bridge_contract"`
	PoolFactory        string        `mapstructure:"pool_factory"`
	SignerKey          string        `mapstructure:"signer_key"`
	GasLimit           uint64        `mapstructure:"gas_limit" default:"300000"`
	MaxGasPrice        string        `mapstructure:"max_gas_price"`
	ConfirmationBlocks int           `mapstructure:"confirmation_blocks" default:"1"`
	CallTimeout        time.Duration `mapstructure:"call_timeout" default:"30s"`
	ReceiptTimeout     time.Duration `mapstructure:"receipt_timeout" default:"2m"`
}

// EngineConfig contains the synchronization engine settings
type EngineConfig struct {
	MonitorInterval    time.Duration `mapstructure:"monitor_interval"`
	DeviationInterval  time.Duration `mapstructure:"deviation_interval"`
	DeviationTolerance float64       `mapstructure:"deviation_tolerance"`
	MaxBridgeAttempts  int           `mapstructure:"max_bridge_attempts"`
	MaxGraduationTries int           `mapstructure:"max_graduation_tries"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// viper defaults do not reach slice entries; fill per-chain defaults here
	for i := range config.Chains {
		if err := defaults.Set(&config.Chains[i]); err != nil {
			return nil, fmt.Errorf("failed to apply chain defaults: %w", err)
		}
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "curve_engine")

	// Engine defaults
	viper.SetDefault("engine.monitor_interval", "30s")
	viper.SetDefault("engine.deviation_interval", "5m")
	viper.SetDefault("engine.deviation_tolerance", 0.005)
	viper.SetDefault("engine.max_bridge_attempts", 5)
	viper.SetDefault("engine.max_graduation_tries", 10)
	viper.SetDefault("engine.retry_base_delay", "1m")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(config.Chains))
	for _, chain := range config.Chains {
		if _, ok := seen[chain.Name]; ok {
			return fmt.Errorf("duplicate chain name %q", chain.Name)
		}
		seen[chain.Name] = struct{}{}
	}
	return nil
}

// Chain returns the configuration of the named chain, if present.
func (c *Config) Chain(name string) (*ChainConfig, bool) {
	for i := range c.Chains {
		if c.Chains[i].Name == name {
			return &c.Chains[i], true
		}
	}
	return nil, false
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
