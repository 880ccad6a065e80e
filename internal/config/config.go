package config

import (
	"strings"
	"time"

	"github.com/SeakMengs/CertGate/internal/env"
)

type Config struct {
	Port        string
	ENV         string
	App         AppConfig
	DB          DatabaseConfig
	Minio       MinioConfig
	RateLimiter RateLimiterConfig
	Mail        MailConfig
	Auth        AuthConfig
}

type AppConfig struct {
	// Public base url of the api, used to build verification links embedded in QR codes
	BaseURL string
	// Secret mixed into certificate verification hashes
	VerifySecret string
	// Path to the font metadata json produced by cmd/scan_font
	FontMetadataPath string
	// Font family used when a field requests an unknown font
	DefaultFontName string
	// Wall-clock budget for a single certificate render
	RenderTimeout time.Duration
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}

type AuthConfig struct {
	JWT_SECRET string
}

type DatabaseConfig struct {
	DB_HOST      string
	DB_PORT      string
	DB_DATABASE  string
	DB_USERNAME  string
	DB_PASSWORD  string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  string
}

type MinioConfig struct {
	ENDPOINT   string
	ACCESS_KEY string
	SECRET_KEY string
	BUCKET     string
	USE_SSL    bool
}

type MailConfig struct {
	SEND_GRID  SendGridConfig
	FROM_EMAIL string
}

type SendGridConfig struct {
	API_KEY string
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.ENV, "production")
}

func GetConfig() Config {
	rateLimiteTimeFrame, err := time.ParseDuration(env.GetString("RATE_LIMIT_TIME_FRAME", "1m"))
	if err != nil {
		rateLimiteTimeFrame = 60 * time.Second
	}

	renderTimeout, err := time.ParseDuration(env.GetString("APP_RENDER_TIMEOUT", "10s"))
	if err != nil {
		renderTimeout = 10 * time.Second
	}

	return Config{
		Port: env.GetString("PORT", "8080"),
		ENV:  env.GetString("ENV", "development"),
		App: AppConfig{
			BaseURL:          env.GetString("APP_BASE_URL", "http://localhost:8080"),
			VerifySecret:     env.GetString("APP_VERIFY_SECRET", ""),
			FontMetadataPath: env.GetString("APP_FONT_METADATA_PATH", "font_metadata.json"),
			DefaultFontName:  env.GetString("APP_DEFAULT_FONT", ""),
			RenderTimeout:    renderTimeout,
		},
		DB: DatabaseConfig{
			DB_HOST:      env.GetString("DB_HOST", "127.0.0.1"),
			DB_PORT:      env.GetString("DB_PORT", "5432"),
			DB_USERNAME:  env.GetString("DB_USERNAME", "root"),
			DB_PASSWORD:  env.GetString("DB_PASSWORD", ""),
			DB_DATABASE:  env.GetString("DB_DATABASE", "certgate"),
			MaxOpenConns: env.GetInt("DB_MAX_OPEN_CONNS", 30),
			MaxIdleConns: env.GetInt("DB_MAX_IDLE_CONNS", 30),
			MaxIdleTime:  env.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
		Minio: MinioConfig{
			ENDPOINT:   env.GetString("MINIO_ENDPOINT", "127.0.0.1:9000"),
			ACCESS_KEY: env.GetString("MINIO_ACCESS_KEY", ""),
			SECRET_KEY: env.GetString("MINIO_SECRET_KEY", ""),
			BUCKET:     env.GetString("MINIO_BUCKET", "certgate"),
			USE_SSL:    env.GetBool("MINIO_USE_SSL", false),
		},
		// By default if not specified, we allow 5000 requests per minute on all routes
		RateLimiter: RateLimiterConfig{
			RequestsPerTimeFrame: env.GetInt("RATE_LIMIT_REQUESTS_PER_TIME_FRAME", 5000),
			TimeFrame:            rateLimiteTimeFrame,
			Enabled:              env.GetBool("RATE_LIMIT_ENABLED", true),
		},
		Mail: MailConfig{
			FROM_EMAIL: env.GetString("MAIL_FROM_MAIL", ""),
			SEND_GRID: SendGridConfig{
				API_KEY: env.GetString("MAIL_SEND_GRID_API_KEY", ""),
			},
		},
		Auth: AuthConfig{
			JWT_SECRET: env.GetString("AUTH_JWT_SECRET", ""),
		},
	}
}
