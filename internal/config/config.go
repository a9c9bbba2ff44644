package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Board struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"board"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Game struct {
		SelectionPolicy string `yaml:"selection_policy" env:"QUESTION_SELECTION_POLICY"`
		RecentWindow    string `yaml:"recent_window"`
	} `yaml:"game"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies environment overrides. A
// .env file in the working directory is loaded first when present. A missing
// YAML file leaves every field to the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
