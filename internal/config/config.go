package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Geocoding GeocodingConfig
	Listing   ListingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

// GeocodingConfig limits lookups to the home country and its bounding box.
type GeocodingConfig struct {
	GeoapifyKey string
	BaseURL     string
	CountryCode string
	MinLat      float64
	MaxLat      float64
	MinLon      float64
	MaxLon      float64
	Timeout     time.Duration
	CacheTTL    time.Duration
}

type ListingConfig struct {
	CacheTTL        time.Duration
	InvalidateTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/sharecycle.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Geocoding: GeocodingConfig{
			GeoapifyKey: getEnv("GEOAPIFY_API_KEY", ""),
			BaseURL:     getEnv("GEOAPIFY_BASE_URL", "https://api.geoapify.com"),
			CountryCode: getEnv("GEOCODING_COUNTRY_CODE", "br"),
			MinLat:      getEnvAsFloat("GEOCODING_MIN_LAT", -33.75),
			MaxLat:      getEnvAsFloat("GEOCODING_MAX_LAT", 5.27),
			MinLon:      getEnvAsFloat("GEOCODING_MIN_LON", -73.99),
			MaxLon:      getEnvAsFloat("GEOCODING_MAX_LON", -34.79),
			Timeout:     getEnvAsDuration("GEOCODING_TIMEOUT", 5*time.Second),
			CacheTTL:    getEnvAsDuration("GEOCODING_CACHE_TTL", 24*time.Hour),
		},
		Listing: ListingConfig{
			CacheTTL:        getEnvAsDuration("LISTING_CACHE_TTL", 30*time.Second),
			InvalidateTopic: getEnv("LISTING_INVALIDATE_TOPIC", "donations.listing.invalidate"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings such as "5s" or "24h".
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
