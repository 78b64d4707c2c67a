// Package config loads settings from .env, the environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Images   ImagesConfig   `mapstructure:"images"`
	Mail     MailConfig     `mapstructure:"mail"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AskAddr         string        `mapstructure:"ask_addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	SessionLifetime time.Duration `mapstructure:"session_lifetime"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	RatePerMinute   int           `mapstructure:"rate_per_minute"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

type UpstreamConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	OpenAIKey     string        `mapstructure:"openai_key"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	ChatModel     string        `mapstructure:"chat_model"`
	RecipeModel   string        `mapstructure:"recipe_model"`
	VisionModel   string        `mapstructure:"vision_model"`
	ImgBBKey      string        `mapstructure:"imgbb_key"`
	ImgBBURL      string        `mapstructure:"imgbb_url"`
	StabilityKey  string        `mapstructure:"stability_key"`
	StabilityURL  string        `mapstructure:"stability_url"`
}

type ImagesConfig struct {
	UploadDir   string        `mapstructure:"upload_dir"`
	Backend     string        `mapstructure:"backend"`
	Dir         string        `mapstructure:"dir"`
	Retention   time.Duration `mapstructure:"retention"`
	S3Bucket    string        `mapstructure:"s3_bucket"`
	S3Region    string        `mapstructure:"s3_region"`
	S3Endpoint  string        `mapstructure:"s3_endpoint"`
	S3AccessKey string        `mapstructure:"s3_access_key"`
	S3SecretKey string        `mapstructure:"s3_secret_key"`
}

type MailConfig struct {
	SendGridKey string `mapstructure:"sendgrid_key"`
	FromName    string `mapstructure:"from_name"`
	FromEmail   string `mapstructure:"from_email"`
}

// envBindings maps config keys onto the environment variable names the
// deployment already uses.
var envBindings = map[string]string{
	"app.environment":          "APP_ENV",
	"app.log_level":            "LOG_LEVEL",
	"app.log_format":           "LOG_FORMAT",
	"server.addr":              "ADDR",
	"server.ask_addr":          "ASK_ADDR",
	"server.allowed_origins":   "ALLOWED_ORIGINS",
	"database.url":             "DATABASE_URL",
	"redis.url":                "REDIS_URL",
	"auth.enabled":             "AUTH_ENABLED",
	"auth.session_lifetime":    "SESSION_LIFETIME",
	"auth.secure_cookies":      "SECURE_COOKIES",
	"upstream.timeout":         "UPSTREAM_TIMEOUT",
	"upstream.openai_key":      "OPENAI_API_KEY",
	"upstream.openai_base_url": "OPENAI_BASE_URL",
	"upstream.imgbb_key":       "IMGBB_API_KEY",
	"upstream.stability_key":   "STABILITY_API_KEY",
	"images.upload_dir":        "UPLOAD_FOLDER",
	"images.backend":           "IMAGES_BACKEND",
	"images.dir":               "IMAGES_DIR",
	"images.retention":         "IMAGES_RETENTION",
	"images.s3_bucket":         "S3_BUCKET",
	"images.s3_region":         "S3_REGION",
	"images.s3_endpoint":       "S3_ENDPOINT",
	"images.s3_access_key":     "S3_ACCESS_KEY",
	"images.s3_secret_key":     "S3_SECRET_KEY",
	"mail.sendgrid_key":        "SENDGRID_API_KEY",
}

// Load reads .env (outside production) and the environment into a Config.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// a missing .env is fine, the environment may carry everything
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.ask_addr", ":5001")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5000"})
	v.SetDefault("server.max_upload_bytes", 16<<20)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.session_lifetime", "24h")
	v.SetDefault("auth.secure_cookies", false)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.rate_per_minute", 30)
	v.SetDefault("auth.rate_burst", 10)

	v.SetDefault("upstream.timeout", "60s")
	v.SetDefault("upstream.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("upstream.chat_model", "gpt-4o-mini")
	v.SetDefault("upstream.recipe_model", "gpt-4")
	v.SetDefault("upstream.vision_model", "gpt-4o")
	v.SetDefault("upstream.imgbb_url", "https://api.imgbb.com/1/upload")
	v.SetDefault("upstream.stability_url", "https://api.stability.ai/v2beta/stable-image/generate/core")

	v.SetDefault("images.upload_dir", "uploads")
	v.SetDefault("images.backend", "disk")
	v.SetDefault("images.dir", "uploads/generated")
	v.SetDefault("images.retention", "0s")
	v.SetDefault("images.s3_region", "us-east-1")

	v.SetDefault("mail.from_name", "Autonomeal")
	v.SetDefault("mail.from_email", "donotreply@autonomeal.app")
}

// ValidateAPI checks what the API server needs to start.
func (c *Config) ValidateAPI() error {
	var errs []error
	if c.Auth.Enabled && c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when auth is enabled"))
	}
	if c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.Upstream.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Upstream.ImgBBKey == "" {
		errs = append(errs, errors.New("IMGBB_API_KEY is required"))
	}
	if c.Upstream.StabilityKey == "" {
		errs = append(errs, errors.New("STABILITY_API_KEY is required"))
	}
	switch c.Images.Backend {
	case "disk":
	case "s3":
		if c.Images.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 image backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown images backend %q", c.Images.Backend))
	}
	if c.Auth.SessionLifetime <= 0 {
		errs = append(errs, errors.New("session lifetime must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateAsk checks what the conversation server needs to start.
func (c *Config) ValidateAsk() error {
	var errs []error
	if c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.Upstream.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
