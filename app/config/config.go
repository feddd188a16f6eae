package config

import (
	"fmt"
	"os"
	"strconv"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Environment string
	Port        string
	Supabase    SupabaseConfig
	DB          PostgresConfig
	Storage     StorageConfig
	Stripe      StripeConfig
	Engine      EngineConfig
	Limits      LimitsConfig
}

type SupabaseConfig struct {
	URL        string
	ServiceKey string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Database string
}

type StorageConfig struct {
	Endpoint        string
	Region          string
	AccessKey       string
	SecretKey       string
	VoiceBucket     string
	GeneratedBucket string
}

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	PriceIDProMonthly string
	FrontendURL       string
}

type EngineConfig struct {
	Path     string
	Backbone string
	Codec    string
	Device   string
	Workers  int
}

type LimitsConfig struct {
	FreeTierLimit   int
	ProTierLimit    int
	MaxAudioSeconds int
	MaxTextLength   int
}

func LoadConfig() (*Config, error) {
	workers, err := intOr("ENGINE_WORKERS", 1)
	if err != nil {
		return nil, err
	}

	freeLimit, err := intOr("FREE_TIER_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	proLimit, err := intOr("PRO_TIER_LIMIT", 500)
	if err != nil {
		return nil, err
	}

	maxAudio, err := intOr("MAX_AUDIO_LENGTH_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	maxText, err := intOr("MAX_TEXT_LENGTH", 5000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: envOr("ENV", "development"),
		Port:        envOr("PORT", "8000"),
		Supabase: SupabaseConfig{
			URL:        os.Getenv("SUPABASE_URL"),
			ServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		},
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
			Database: envOr("POSTGRES_DB", "postgres"),
		},
		Storage: StorageConfig{
			Endpoint:        os.Getenv("STORAGE_ENDPOINT"),
			Region:          envOr("STORAGE_REGION", "us-east-1"),
			AccessKey:       os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:       os.Getenv("STORAGE_SECRET_KEY"),
			VoiceBucket:     envOr("STORAGE_VOICE_BUCKET", "voice-samples"),
			GeneratedBucket: envOr("STORAGE_GENERATED_BUCKET", "generated-audio"),
		},
		Stripe: StripeConfig{
			SecretKey:         os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDProMonthly: os.Getenv("STRIPE_PRICE_ID_PRO"),
			FrontendURL:       os.Getenv("FRONTEND_URL"),
		},
		Engine: EngineConfig{
			Path:     os.Getenv("ENGINE_PATH"),
			Backbone: envOr("ENGINE_BACKBONE", "neuphonic/neutts-air-q4-gguf"),
			Codec:    envOr("ENGINE_CODEC", "neuphonic/neucodec"),
			Device:   envOr("ENGINE_DEVICE", "auto"),
			Workers:  workers,
		},
		Limits: LimitsConfig{
			FreeTierLimit:   freeLimit,
			ProTierLimit:    proLimit,
			MaxAudioSeconds: maxAudio,
			MaxTextLength:   maxText,
		},
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("error converting string to int: %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
