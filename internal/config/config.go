package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json | console
	} `yaml:"log"`

	Provider struct {
		Name           string `yaml:"name"` // reality-defender | sightengine | http | openai | demo
		RealityDefender struct {
			APIKey            string        `yaml:"apiKey"`
			PresignedEndpoint string        `yaml:"presignedEndpoint"`
			ResultEndpoint    string        `yaml:"resultEndpoint"`
			PollInterval      time.Duration `yaml:"pollInterval"`
			MaxPolls          int           `yaml:"maxPolls"`
		} `yaml:"realityDefender"`
		Sightengine struct {
			APIUser   string `yaml:"apiUser"`
			APISecret string `yaml:"apiSecret"`
			Endpoint  string `yaml:"endpoint"`
			Models    string `yaml:"models"`
		} `yaml:"sightengine"`
		HTTP struct {
			BaseURL string `yaml:"baseURL"`
			Path    string `yaml:"path"`
		} `yaml:"http"`
		OpenAI struct {
			APIKey  string `yaml:"apiKey"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"openai"`
		Demo struct {
			Seed    int64         `yaml:"seed"`
			Latency time.Duration `yaml:"latency"`
		} `yaml:"demo"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"provider"`

	History struct {
		Backend     string `yaml:"backend"` // memory | mysql | postgres | redis
		Limit       int    `yaml:"limit"`
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"history"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Minio struct {
		Enabled       bool          `yaml:"enabled"`
		Endpoint      string        `yaml:"endpoint"`
		AccessKey     string        `yaml:"accessKey"`
		SecretKey     string        `yaml:"secretKey"`
		BucketName    string        `yaml:"bucketName"`
		Region        string        `yaml:"region"`
		UseSSL        bool          `yaml:"useSSL"`
		PreviewExpiry time.Duration `yaml:"previewExpiry"`
	} `yaml:"minio"`

	Upload struct {
		MaxBytes int64 `yaml:"maxBytes"`
	} `yaml:"upload"`

	CORS struct {
		FrontendURL string   `yaml:"frontendURL"`
		Origins     []string `yaml:"origins"`
		AllowAll    bool     `yaml:"allowAll"`
	} `yaml:"cors"`

	Auth struct {
		APIKeys []string `yaml:"apiKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Enabled  bool    `yaml:"enabled"`
		Rate     float64 `yaml:"rate"` // tokens per second
		Capacity int     `yaml:"capacity"`
	} `yaml:"rateLimit"`
}

// Load baca file config, kalau file gak ada pakai default + env
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv(os.LookupEnv)
	return &cfg, cfg.Validate()
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 60 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "demo"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 60 * time.Second
	}
	if c.Provider.RealityDefender.MaxPolls == 0 {
		c.Provider.RealityDefender.MaxPolls = 1
	}
	if c.History.Backend == "" {
		c.History.Backend = "memory"
	}
	if c.History.Limit == 0 {
		c.History.Limit = 20
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
	if c.Minio.PreviewExpiry == 0 {
		c.Minio.PreviewExpiry = 24 * time.Hour
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 50 << 20
	}
	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 2
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 10
	}
}

// applyEnv overrides secrets and deployment knobs from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("REALITY_API_KEY", &c.Provider.RealityDefender.APIKey)
	str("SIGHTENGINE_API_USER", &c.Provider.Sightengine.APIUser)
	str("SIGHTENGINE_API_SECRET", &c.Provider.Sightengine.APISecret)
	str("OPENAI_API_KEY", &c.Provider.OpenAI.APIKey)
	str("DETECTOR_PROVIDER", &c.Provider.Name)
	str("FRONTEND_URL", &c.CORS.FrontendURL)
	str("API_BASE", &c.Provider.HTTP.BaseURL)
	if v, ok := lookup("DEV_ALLOW_ALL"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.CORS.AllowAll = b
		}
	}
	if v, ok := lookup("PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate checks the combination of provider, backend and limits.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "reality-defender", "sightengine", "http", "openai", "demo":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	switch c.History.Backend {
	case "memory", "redis":
	case "mysql":
		if c.Database.Host == "" || c.Database.Name == "" {
			return errors.New("mysql backend needs database.host and database.name")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres backend needs postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown history backend %q", c.History.Backend)
	}
	if c.History.Limit < 0 {
		return errors.New("history.limit must be positive")
	}
	if c.Upload.MaxBytes < 0 {
		return errors.New("upload.maxBytes must be positive")
	}
	if c.Provider.Name == "http" && c.Provider.HTTP.BaseURL == "" {
		return errors.New("http provider needs provider.http.baseURL")
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return errors.New("minio needs endpoint and bucketName")
	}
	return nil
}

// AllowedOrigins is the CORS origin list, FRONTEND_URL first.
func (c *Config) AllowedOrigins() []string {
	if c.CORS.AllowAll {
		return []string{"*"}
	}
	var out []string
	if c.CORS.FrontendURL != "" {
		out = append(out, strings.TrimRight(c.CORS.FrontendURL, "/"))
	}
	out = append(out, c.CORS.Origins...)
	if len(out) == 0 {
		out = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	return out
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
