package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Gateway     GatewayConfig  `mapstructure:"gateway"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Check       CheckConfig    `mapstructure:"check"`
	Schedule    ScheduleConfig `mapstructure:"schedule"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	HTTPPort int           `mapstructure:"http_port"`
	Host     string        `mapstructure:"host"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GatewayConfig contains the OData gateway connection settings
type GatewayConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	ReportSet string        `mapstructure:"report_set"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig contains the optional replicated master data database.
// When enabled, entity sets listed in Tables are read from SQL instead of
// the gateway.
type DatabaseConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	DSN     string            `mapstructure:"dsn"`
	Tables  map[string]string `mapstructure:"tables"`
}

// RedisConfig contains Redis settings for whitelist snapshot persistence
type RedisConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Password    string `mapstructure:"password"`
	Database    int    `mapstructure:"database"`
	SnapshotKey string `mapstructure:"snapshot_key"`
}

// RuleConfig is one configured check rule
type RuleConfig struct {
	EntitySet string `mapstructure:"entity_set"`
	Field     string `mapstructure:"field"`
	Category  string `mapstructure:"category"`
}

// CheckConfig contains the readiness check settings
type CheckConfig struct {
	RegulationRef      string        `mapstructure:"regulation_ref"`
	LookbackMonths     int           `mapstructure:"lookback_months"`
	WhitelistTTL       time.Duration `mapstructure:"whitelist_ttl"`
	MaxConcurrentRules int           `mapstructure:"max_concurrent_rules"`
	MaxRowsPerRule     int           `mapstructure:"max_rows_per_rule"`
	MaxBomParents      int           `mapstructure:"max_bom_parents"`
	RuleTimeout        time.Duration `mapstructure:"rule_timeout"`
	Rules              []RuleConfig  `mapstructure:"rules"`
}

// ScheduleConfig contains the periodic run settings
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/readiness-engine")
	}
	viper.SetEnvPrefix("READINESS")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.timeout", "30s")

	// Gateway defaults
	viper.SetDefault("gateway.base_url", "http://localhost:8000/sap/opu/odata/compliance")
	viper.SetDefault("gateway.report_set", "ComplianceReportSet")
	viper.SetDefault("gateway.timeout", "30s")

	// Database defaults
	viper.SetDefault("database.enabled", false)

	// Redis defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.snapshot_key", "readiness:whitelist-snapshot")

	// Check defaults
	viper.SetDefault("check.regulation_ref", "EU-2023/1115")
	viper.SetDefault("check.lookback_months", 12)
	viper.SetDefault("check.whitelist_ttl", "30m")
	viper.SetDefault("check.max_concurrent_rules", 4)
	viper.SetDefault("check.max_rows_per_rule", 5000)
	viper.SetDefault("check.max_bom_parents", 200)
	viper.SetDefault("check.rule_timeout", "60s")

	// Schedule defaults
	viper.SetDefault("schedule.enabled", false)
	viper.SetDefault("schedule.cron", "0 6 * * *")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

func validateConfig(config *Config) error {
	if config.Server.HTTPPort <= 0 || config.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", config.Server.HTTPPort)
	}
	if config.Gateway.BaseURL == "" && !config.Database.Enabled {
		return fmt.Errorf("either gateway.base_url or database must be configured")
	}
	if config.Database.Enabled && config.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when database is enabled")
	}
	if config.Check.LookbackMonths <= 0 {
		return fmt.Errorf("check.lookback_months must be positive")
	}
	if config.Check.MaxConcurrentRules <= 0 {
		return fmt.Errorf("check.max_concurrent_rules must be positive")
	}
	for i, rule := range config.Check.Rules {
		if rule.EntitySet == "" || rule.Field == "" {
			return fmt.Errorf("check.rules[%d] requires entity_set and field", i)
		}
	}
	return nil
}

// DefaultRules returns the built-in check rules applied when the
// configuration does not override them.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{EntitySet: "MaterialSet", Field: "MATNR", Category: "Identification"},
		{EntitySet: "MaterialSet", Field: "MTART", Category: "Identification"},
		{EntitySet: "MaterialSet", Field: "MEINS", Category: "Units"},
		{EntitySet: "StockSet", Field: "MENGE", Category: "Quantities"},
		{EntitySet: "ValuationSet", Field: "WAERS", Category: "Valuation"},
		{EntitySet: "ValuationSet", Field: "STPRS", Category: "Valuation"},
		{EntitySet: "MaterialSet", Field: "ERDAT", Category: "Master Data"},
		{EntitySet: "PlantDataSet", Field: "BESKZ", Category: "Procurement"},
		{EntitySet: "MaterialSet", Field: "TIMBER_CODES", Category: "Deforestation"},
		{EntitySet: "PlantDataSet", Field: "HERKL", Category: "Deforestation"},
	}
}
