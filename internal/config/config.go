package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Map       MapConfig       `yaml:"map"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver string `yaml:"driver"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Migrate  bool   `yaml:"migrate"`
}

type SQLiteConfig struct {
	// Path is empty for an in-memory database.
	Path string `yaml:"path"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether workout events go to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type MapConfig struct {
	TileURL     string `yaml:"tile_url" json:"tile_url"`
	Attribution string `yaml:"attribution" json:"attribution"`
	Zoom        int    `yaml:"zoom" json:"zoom"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// DSN returns a PostgreSQL connection string.
func (d PostgresConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Default returns the configuration used for keys the file leaves unset.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
		Storage: StorageConfig{Driver: "memory"},
		Kafka:   KafkaConfig{Topic: "mapty.workouts"},
		Map: MapConfig{
			TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
			Zoom:        13,
		},
		Tailscale: TailscaleConfig{Hostname: "mapty"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file on top of Default, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix MAPTY_ and underscore-separated paths:
//
//	MAPTY_SERVER_HOST, MAPTY_SERVER_PORT, MAPTY_STORAGE_DRIVER,
//	MAPTY_DB_HOST, MAPTY_DB_PORT, MAPTY_DB_NAME,
//	MAPTY_DB_USER, MAPTY_DB_PASSWORD, MAPTY_DB_SSLMODE,
//	MAPTY_SQLITE_PATH, MAPTY_KAFKA_BROKERS (comma-separated), MAPTY_KAFKA_TOPIC,
//	MAPTY_MAP_ZOOM, MAPTY_AUTH_API_KEY, MAPTY_TAILSCALE_ENABLED, MAPTY_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAPTY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MAPTY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MAPTY_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("MAPTY_DB_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("MAPTY_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("MAPTY_DB_NAME"); v != "" {
		cfg.Postgres.Name = v
	}
	if v := os.Getenv("MAPTY_DB_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("MAPTY_DB_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("MAPTY_DB_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("MAPTY_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("MAPTY_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MAPTY_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("MAPTY_MAP_ZOOM"); v != "" {
		if zoom, err := strconv.Atoi(v); err == nil {
			cfg.Map.Zoom = zoom
		}
	}
	if v := os.Getenv("MAPTY_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("MAPTY_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("MAPTY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres.host is required")
		}
		if c.Postgres.Port == 0 {
			return fmt.Errorf("postgres.port is required")
		}
		if c.Postgres.Name == "" {
			return fmt.Errorf("postgres.name is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres.user is required")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka.brokers is set")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 19 {
		return fmt.Errorf("map.zoom must be between 0 and 19")
	}
	if c.Map.TileURL == "" {
		return fmt.Errorf("map.tile_url is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
