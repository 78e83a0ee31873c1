package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	JWT       JWTConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Listen       string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	URL         string
	ConnTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OAuthConfig describes a single external identity provider. Provider is the
// lowercase route key ("aosc"); link rows store its uppercased form.
type OAuthConfig struct {
	Provider     string
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	JWKURL       string
	Timeout      time.Duration
	KeyCacheTTL  time.Duration
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("LISTEN_ADDRESS", "0.0.0.0:8000")
	viper.SetDefault("DATABASE_CONN_TIMEOUT", 10)
	viper.SetDefault("OAUTH_PROVIDER", "aosc")
	viper.SetDefault("OAUTH_TIMEOUT", 10)
	viper.SetDefault("OAUTH_KEY_CACHE_TTL", 300)
	viper.SetDefault("JWT_TOKEN_TTL", 24*60)
	viper.SetDefault("SESSION_TTL", 7*24*60)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 2.0)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 10)

	cfg := &Config{
		Server: ServerConfig{
			Listen:       viper.GetString("LISTEN_ADDRESS"),
			BaseURL:      viper.GetString("BASE_URL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL:         os.Getenv("DATABASE_URL"),
			ConnTimeout: time.Duration(viper.GetInt("DATABASE_CONN_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		OAuth: OAuthConfig{
			Provider:     viper.GetString("OAUTH_PROVIDER"),
			AuthURL:      viper.GetString("OAUTH_AUTH_URL"),
			TokenURL:     viper.GetString("OAUTH_TOKEN_URL"),
			ClientID:     viper.GetString("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			RedirectURL:  viper.GetString("OAUTH_REDIRECT_URL"),
			JWKURL:       viper.GetString("OAUTH_JWK_URL"),
			Timeout:      time.Duration(viper.GetInt("OAUTH_TIMEOUT")) * time.Second,
			KeyCacheTTL:  time.Duration(viper.GetInt("OAUTH_KEY_CACHE_TTL")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			TokenTTL: time.Duration(viper.GetInt("JWT_TOKEN_TTL")) * time.Minute,
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			TTL:    time.Duration(viper.GetInt("SESSION_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	return cfg, nil
}
