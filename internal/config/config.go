package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OAuth    OAuthConfig
	TMDB     TMDBConfig
	OMDB     OMDBConfig
	Search   SearchConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Env        string
	Port       string
	Host       string
	TrustProxy bool
	Debug      bool
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	TLS      bool
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	CallbackHost       string
}

type TMDBConfig struct {
	APIKey            string
	BaseURL           string
	ImageBaseURL      string
	RequestsPerSecond float64
}

// OMDBConfig is optional; an empty APIKey disables secondary ratings.
type OMDBConfig struct {
	APIKey  string
	BaseURL string
}

type SearchConfig struct {
	UpstreamTimeout time.Duration
	QuotaPerMinute  int
}

type SessionConfig struct {
	SecretKey string
	TTL       time.Duration
}

// Load reads environment variables and returns a Config struct
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Env:        getEnv("APP_ENV", "local"),
			Port:       getEnv("PORT", "8000"),
			Host:       getEnv("HOST", "http://localhost:8000"),
			TrustProxy: getEnv("TRUST_PROXY", "false") == "true",
			Debug:      getEnv("DEBUG", "false") == "true",
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TLS:      getEnv("REDIS_TLS", "false") == "true",
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackHost:       getEnv("HOST", "http://localhost:8000"),
		},
		TMDB: TMDBConfig{
			APIKey:       getEnv("TMDB_KEY", ""),
			BaseURL:      getEnv("TMDB_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL: getEnv("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p/w342"),
		},
		OMDB: OMDBConfig{
			APIKey:  getEnv("OMDB_KEY", ""),
			BaseURL: getEnv("OMDB_URL", "https://www.omdbapi.com"),
		},
		Session: SessionConfig{
			SecretKey: getEnv("SECRET_KEY", ""),
		},
	}

	var err error
	if cfg.TMDB.RequestsPerSecond, err = getFloat("TMDB_RPS", 35); err != nil {
		return nil, err
	}
	if cfg.Search.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.Search.QuotaPerMinute, err = getInt("SEARCH_QUOTA_PER_MIN", 30); err != nil {
		return nil, err
	}
	if cfg.Session.TTL, err = getDuration("SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TMDB.APIKey == "" {
		return nil, fmt.Errorf("TMDB_KEY is required")
	}
	if cfg.Session.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if len(cfg.Session.SecretKey) < 32 {
		return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters")
	}
	if cfg.TMDB.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("TMDB_RPS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 8s: %w", key, err)
	}
	return v, nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment returns true if running in development/local mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "local" || c.Server.Env == "development"
}

// RedisAddr returns the Redis address in host:port format
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// OMDBEnabled reports whether secondary ratings should be fetched.
func (c *Config) OMDBEnabled() bool {
	return c.OMDB.APIKey != ""
}
