package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"bikeshare-platform/pkg/database"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Data     DataConfig     `mapstructure:"data"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the trip store
// Path is used by the sqlite3 driver, the network fields by postgres.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Connection converts the section into a database connection config
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Driver:          d.Driver,
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		Path:            d.Path,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LoggingConfig configures the structured logger
// An empty File means stderr.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DataConfig says where city datasets come from
type DataConfig struct {
	Dir    string            `mapstructure:"dir"`
	Source string            `mapstructure:"source"`
	Cities map[string]string `mapstructure:"cities"`
}

// AnalysisConfig tunes the statistics run and raw record paging
type AnalysisConfig struct {
	PageSize int  `mapstructure:"page_size"`
	Parallel bool `mapstructure:"parallel"`
}

// Data sources
const (
	SourceCSV      = "csv"
	SourceDatabase = "database"
)

// DefaultCities maps each supported city to its data file
var DefaultCities = map[string]string{
	"chicago":       "chicago.csv",
	"new york city": "new_york_city.csv",
	"washington":    "washington.csv",
}

// LoadConfig reads .env, an optional config.yaml and BIKESHARE_* environment variables
func LoadConfig() (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/bikeshare")

	setDefaults(v)

	v.SetEnvPrefix("BIKESHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// viper lowercases map keys; normalise anyway for env-provided maps
	cities := make(map[string]string, len(cfg.Data.Cities))
	for name, file := range cfg.Data.Cities {
		cities[strings.ToLower(strings.TrimSpace(name))] = file
	}
	cfg.Data.Cities = cities

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", database.DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bikeshare")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "bikeshare")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "bikeshare.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("data.dir", ".")
	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.cities", DefaultCities)

	v.SetDefault("analysis.page_size", 5)
	v.SetDefault("analysis.parallel", false)
}

// Validate checks the configuration for values the services cannot use
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case database.DriverPostgres:
		if c.Database.Host == "" || c.Database.Database == "" {
			return errors.New("database.host and database.database are required for postgres")
		}
	case database.DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Data.Source {
	case SourceCSV, SourceDatabase:
	default:
		return fmt.Errorf("unsupported data.source %q", c.Data.Source)
	}

	if len(c.Data.Cities) == 0 {
		return errors.New("data.cities must list at least one city")
	}

	if c.Analysis.PageSize < 1 {
		return fmt.Errorf("analysis.page_size must be positive, got %d", c.Analysis.PageSize)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported logging.level %q", c.Logging.Level)
	}

	return nil
}
