package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	JWTSecret         string
	DataEncryptionKey string
	Environment       string

	HorizonDays    int
	MinLeadHours   int
	SlotMinutes    int
	SlotStarts     []string
	SeedData       bool
	RunMigrations  bool

	HorizonRollInterval   time.Duration
	ReminderBatchInterval time.Duration

	EmailEnabled bool
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool

	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
}

func Load() Config {
	return Config{
		Addr:              getEnv("APP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:       getEnv("APP_ENV", "development"),

		HorizonDays:   getEnvInt("BOOKING_HORIZON_DAYS", 30),
		MinLeadHours:  getEnvInt("BOOKING_MIN_LEAD_HOURS", 24),
		SlotMinutes:   getEnvInt("SLOT_MINUTES", 30),
		SlotStarts:    getEnvList("SLOT_STARTS", []string{"09:00", "10:00", "11:00", "14:00", "15:00"}),
		SeedData:      getEnvBool("RUN_SEED", true),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		HorizonRollInterval:   getEnvDuration("HORIZON_ROLL_INTERVAL", 24*time.Hour),
		ReminderBatchInterval: getEnvDuration("REMINDER_BATCH_INTERVAL", 24*time.Hour),

		EmailEnabled: getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:    getEnv("EMAIL_FROM", "no-reply@example.com"),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:   getEnvBool("SMTP_USE_TLS", true),

		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func (c Config) Validate() error {
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("BOOKING_HORIZON_DAYS must be positive")
	}
	if c.MinLeadHours < 0 {
		return fmt.Errorf("BOOKING_MIN_LEAD_HOURS must not be negative")
	}
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("SLOT_MINUTES must be positive")
	}
	for _, start := range c.SlotStarts {
		if _, err := time.Parse("15:04", start); err != nil {
			return fmt.Errorf("SLOT_STARTS entry %q is not HH:MM", start)
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
