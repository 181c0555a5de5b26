package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	MongoDBURI      string
	MongoDBPassword string
	MongoDBDatabase string

	SupabaseURL     string
	SupabaseAnonKey string

	GoogleMapsAPIKey string
	MapsCountry      string

	StripeSecretKey     string
	StripeWebhookSecret string
	PublicBaseURL       string
	Currency            string

	AMQPURL              string
	NotificationExchange string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	AllowedOrigins []string
	QuoteTTL       time.Duration

	// AdminDevBypass lets loopback requests act as admin in development.
	AdminDevBypass bool
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                 getEnvWithDefault("PORT", "8080"),
		Environment:          getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:             getEnvWithDefault("LOG_LEVEL", "info"),
		MongoDBURI:           os.Getenv("MONGODB_URI"),
		MongoDBPassword:      os.Getenv("MONGODB_PASSWORD"),
		MongoDBDatabase:      getEnvWithDefault("MONGODB_DATABASE", "airportcar"),
		SupabaseURL:          os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:      os.Getenv("SUPABASE_URL_ANON_KEY"),
		GoogleMapsAPIKey:     os.Getenv("GOOGLE_MAPS_API_KEY"),
		MapsCountry:          strings.ToLower(os.Getenv("MAPS_COUNTRY")),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PublicBaseURL:        strings.TrimRight(getEnvWithDefault("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		Currency:             strings.ToLower(getEnvWithDefault("CURRENCY", "usd")),
		AMQPURL:              os.Getenv("AMQP_URL"),
		NotificationExchange: getEnvWithDefault("NOTIFICATION_EXCHANGE", "bookings"),
		CloudinaryCloudName:  os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:     os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:  os.Getenv("CLOUDINARY_API_SECRET"),
		AllowedOrigins:       splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	ttl, err := strconv.Atoi(getEnvWithDefault("QUOTE_TTL_MINUTES", "30"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("QUOTE_TTL_MINUTES must be a positive integer")
	}
	cfg.QuoteTTL = time.Duration(ttl) * time.Minute

	if v := os.Getenv("ADMIN_DEV_BYPASS"); v != "" {
		bypass, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_DEV_BYPASS must be a boolean: %w", err)
		}
		cfg.AdminDevBypass = bypass
	}

	// Validate required fields
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
	}
	if cfg.GoogleMapsAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is required")
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
