package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
	MatchThreshold     float64 `yaml:"match_threshold"`
	EmbeddingDim       int     `yaml:"embedding_dim"`
}

type MonitorConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	// Timezone is the IANA zone used to compute the attendance day for
	// every tenant. "Local" uses the server zone.
	Timezone string `yaml:"timezone"`
	FFmpeg   string `yaml:"ffmpeg"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// Location resolves the configured attendance timezone.
func (m MonitorConfig) Location() (*time.Location, error) {
	if m.Timezone == "" || m.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(m.Timezone)
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "models"
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.MatchThreshold == 0 {
		cfg.Vision.MatchThreshold = 0.6
	}
	if cfg.Vision.EmbeddingDim == 0 {
		cfg.Vision.EmbeddingDim = 512
	}
	if cfg.Monitor.PollInterval == 0 {
		cfg.Monitor.PollInterval = 30 * time.Second
	}
	if cfg.Monitor.CaptureTimeout == 0 {
		cfg.Monitor.CaptureTimeout = 10 * time.Second
	}
	if cfg.Monitor.ProbeTimeout == 0 {
		cfg.Monitor.ProbeTimeout = 3 * time.Second
	}
	if cfg.Monitor.Timezone == "" {
		cfg.Monitor.Timezone = "Local"
	}
	if cfg.Monitor.FFmpeg == "" {
		cfg.Monitor.FFmpeg = "ffmpeg"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GW_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("GW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("GW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GW_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("GW_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("GW_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("GW_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("GW_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("GW_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("GW_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.PollInterval = d
		}
	}
	if v := os.Getenv("GW_TIMEZONE"); v != "" {
		cfg.Monitor.Timezone = v
	}
}
