package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"5001"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	WebhookURL            string `env:"API_WEBHOOK" envDefault:"http://localhost:5000/webhook"`
	WebhookSecret         string `env:"WEBHOOK_SECRET"`
	WebhookTimeoutSeconds int    `env:"WEBHOOK_TIMEOUT_SECONDS" envDefault:"10"`

	FTPHost           string `env:"FTP_HOST"`
	FTPPort           int    `env:"FTP_PORT" envDefault:"21"`
	FTPUser           string `env:"FTP_USER"`
	FTPPassword       string `env:"FTP_PASSWORD"`
	FTPPublicURL      string `env:"FTP_PATH_URL"`
	FTPRoot           string `env:"FTP_ROOT" envDefault:"/public_html"`
	FTPDocumentsDir   string `env:"FTP_DOCUMENTS_DIR" envDefault:"documentos"`
	FTPImagesDir      string `env:"FTP_IMAGES_DIR" envDefault:"imagem_rosto"`
	FTPTimeoutSeconds int    `env:"FTP_TIMEOUT_SECONDS" envDefault:"30"`

	AuthDir     string `env:"AUTH_DIR" envDefault:"./auth"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	SessionName string `env:"SESSION_NAME" envDefault:"default"`

	APIToken             string `env:"API_TOKEN"`
	SendRateLimitPerMin  int    `env:"SEND_RATE_LIMIT_PER_MIN" envDefault:"60"`
	MediaWorkers         int    `env:"MEDIA_WORKERS" envDefault:"8"`
	MessageTimeoutSecond int    `env:"MESSAGE_TIMEOUT_SECONDS" envDefault:"120"`
	ReconnectDelayMillis int    `env:"RECONNECT_DELAY_MS" envDefault:"0"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) FTPAddr() string {
	return fmt.Sprintf("%s:%d", c.FTPHost, c.FTPPort)
}

func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

func (c *Config) FTPTimeout() time.Duration {
	return time.Duration(c.FTPTimeoutSeconds) * time.Second
}

func (c *Config) MessageTimeout() time.Duration {
	return time.Duration(c.MessageTimeoutSecond) * time.Second
}

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMillis) * time.Millisecond
}

// UsePostgres reports whether credentials live in postgres instead of AUTH_DIR.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.MediaWorkers <= 0 {
		return fmt.Errorf("MEDIA_WORKERS must be positive")
	}
	if c.WebhookURL == "" {
		return fmt.Errorf("API_WEBHOOK must not be empty")
	}
	if !c.UsePostgres() && strings.TrimSpace(c.AuthDir) == "" {
		return fmt.Errorf("AUTH_DIR must be set when DATABASE_URL is empty")
	}
	if c.ReconnectDelayMillis < 0 {
		return fmt.Errorf("RECONNECT_DELAY_MS must not be negative")
	}

	if c.FTPHost == "" {
		log.Warn().Msg("FTP_HOST is empty: media uploads disabled, document and image URLs will be null")
	} else if c.FTPPublicURL == "" {
		log.Warn().Msg("FTP_PATH_URL is empty: uploaded media URLs will be relative paths")
	}
	if c.APIToken == "" {
		log.Warn().Msg("API_TOKEN is empty: HTTP API is not authenticated")
	}
	if c.RedisURL != "" && strings.HasPrefix(c.RedisURL, "redis://") {
		log.Debug().Msg("REDIS_URL uses redis:// (not TLS)")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
