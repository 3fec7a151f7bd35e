package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"tokenTTL"` // Go duration, default 24h
	} `yaml:"auth"`

	Uploads struct {
		URLTTL       string `yaml:"urlTTL"`       // presign TTL, default 15m
		DownloadTTL  string `yaml:"downloadTTL"`  // presign TTL, default 1h
		MaxSizeBytes int64  `yaml:"maxSizeBytes"` // default 20 MiB
	} `yaml:"uploads"`
}

// Load reads the config.yaml file and applies env overrides for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Secrets may come from the environment instead of the file.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Uploads.MaxSizeBytes <= 0 {
		cfg.Uploads.MaxSizeBytes = 20 << 20
	}
	return &cfg, nil
}

// MySQLDSN builds the DSN for the mysql driver
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the DSN for the lib/pq driver
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

// UploadTTL parses uploads.urlTTL with a 15m fallback
func (c *Config) UploadTTL() time.Duration {
	return parseDuration(c.Uploads.URLTTL, 15*time.Minute)
}

// DownloadTTL parses uploads.downloadTTL with a 1h fallback
func (c *Config) DownloadTTL() time.Duration {
	return parseDuration(c.Uploads.DownloadTTL, time.Hour)
}

// TokenTTL parses auth.tokenTTL with a 24h fallback
func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
