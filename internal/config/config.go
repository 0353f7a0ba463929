package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Images  ImagesConfig  `yaml:"images"`
	Remover RemoverConfig `yaml:"remover"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"` // exposes /debug and /admin routes
}

// StoreConfig selects and configures the user record store
type StoreConfig struct {
	Driver         string         `yaml:"driver"` // memory, postgres or mongo
	Fallback       bool           `yaml:"fallback"`
	AutoProvision  bool           `yaml:"auto_provision"`
	ConnectTimeout time.Duration  `yaml:"connect_timeout"`
	Postgres       PostgresConfig `yaml:"postgres"`
	Mongo          MongoConfig    `yaml:"mongo"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// ImagesConfig selects where processed images are written
type ImagesConfig struct {
	Driver string   `yaml:"driver"` // local or s3
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible bucket configuration
type S3Config struct {
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
}

// RemoverConfig configures the background-removal collaborator
type RemoverConfig struct {
	Driver       string        `yaml:"driver"` // replicate or passthrough
	APIToken     string        `yaml:"api_token"`
	BaseURL      string        `yaml:"base_url"`
	ModelVersion string        `yaml:"model_version"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Store: StoreConfig{
			Driver:         "memory",
			Fallback:       true,
			AutoProvision:  true,
			ConnectTimeout: 30 * time.Second,
			Mongo:          MongoConfig{Database: "wardrobe", Collection: "users"},
		},
		Images: ImagesConfig{Driver: "local", Dir: "interface/images"},
		Remover: RemoverConfig{
			Driver:       "replicate",
			BaseURL:      "https://api.replicate.com/v1",
			ModelVersion: "fb8af171cfa1616ddcf1242c093f9c46bcada5ad4cf6f2fbe8b81b330ec5c003",
			Timeout:      60 * time.Second,
			PollInterval: time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file on top of the defaults, then
// applies a .env file and environment variables. A missing YAML file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Store.Mongo.URI = v
	}
	if v := os.Getenv("REPLICATE_API_TOKEN"); v != "" {
		c.Remover.APIToken = v
	}
	if v := os.Getenv("IMAGES_DIR"); v != "" {
		c.Images.Dir = v
	}
	return nil
}

// Validate rejects unknown drivers and missing required settings
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required for the postgres driver")
		}
	case "mongo":
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Images.Driver {
	case "local":
		if c.Images.Dir == "" {
			return fmt.Errorf("images.dir is required for the local driver")
		}
	case "s3":
		if c.Images.S3.Bucket == "" {
			return fmt.Errorf("images.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown images driver %q", c.Images.Driver)
	}

	switch c.Remover.Driver {
	case "replicate", "passthrough":
	default:
		return fmt.Errorf("unknown remover driver %q", c.Remover.Driver)
	}

	if c.Remover.Timeout <= 0 {
		return fmt.Errorf("remover.timeout must be positive")
	}

	return nil
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
