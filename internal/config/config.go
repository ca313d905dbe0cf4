package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrConfiguration marks a missing or malformed required setting. It is
// raised before any network activity.
var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	// Vendor account credentials. Both are required; the account id must
	// be email-shaped because it is path-embedded in the login URL.
	ZeppEmail    string `validate:"required,email"`
	ZeppPassword string `validate:"required"`

	// Timezone is the fixed civil timezone for date windows and
	// timestamps. Never the host's local zone.
	Timezone string `validate:"required"`

	LogLevel string

	// OpenAI configuration; empty key disables the AI narrative.
	OpenAIAPIKey string
	OpenAIModel  string

	// SMTP configuration; empty host disables email delivery.
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailTo       string

	// OTLP trace endpoint; empty disables tracing.
	OTLPTracesEndpoint string
}

// Load reads the environment (and .env if present) and validates the
// required credentials. Optional collaborator settings are passed through
// unvalidated; their consumers decide whether they are usable.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		ZeppEmail:    os.Getenv("ZEPPEMAIL"),
		ZeppPassword: os.Getenv("ZEPP_PASSWORD"),

		Timezone: getEnv("SLEEP_TZ", "Europe/Madrid"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_SLEEP_REPORT_MODEL", "gpt-4o-mini"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "465"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASS", ""),
		MailFrom:     getEnv("MAIL_FROM", ""),
		MailTo:       getEnv("MAIL_TO", ""),

		OTLPTracesEndpoint: getEnv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""),
	}

	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: ZEPPEMAIL and ZEPP_PASSWORD must be set (%v)", ErrConfiguration, err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
