package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Airtable AirtableConfig
	Google   GoogleConfig
	Drive    DriveConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
	Sync     SyncConfig
	Site     SiteConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// AirtableConfig holds record-store credentials and table names.
// Table names are overridable so staging bases can use different table labels.
type AirtableConfig struct {
	APIKey             string
	BaseID             string
	BaseURL            string // override for tests; empty = api.airtable.com
	SessionsTable      string
	RegistrationsTable string
	ParticipantsTable  string
}

// GoogleConfig holds service-account credentials for Calendar access.
type GoogleConfig struct {
	CalendarID  string
	ClientEmail string
	PrivateKey  string // raw PEM, \n-escaped PEM, or a JSON service-account key
	Subject     string // optional user to impersonate on invite sends
}

// DriveConfig holds the S3 bucket backing the event asset tree.
type DriveConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RootPrefix      string // key prefix all event folders live under
}

// RedisConfig holds Redis connection settings (sync queue + asset cache).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WebhookConfig holds the optional registration automation webhook.
type WebhookConfig struct {
	RegistrationURL string
}

// SyncConfig controls the calendar-to-record-store sync worker.
type SyncConfig struct {
	Query           string // calendar free-text filter for matching events
	WindowPastDays  int
	IntervalMinutes int // 0 disables the periodic ticker; jobs can still be enqueued over HTTP
}

// SiteConfig holds public-facing URLs.
type SiteConfig struct {
	BaseURL string // base for confirmation links
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Airtable: AirtableConfig{
			APIKey:             getEnv("AIRTABLE_API_KEY", ""),
			BaseID:             getEnv("AIRTABLE_BASE_ID", ""),
			BaseURL:            getEnv("AIRTABLE_BASE_URL", ""),
			SessionsTable:      getEnv("AIRTABLE_SESSIONS_TABLE", "Live Sessions"),
			RegistrationsTable: getEnv("AIRTABLE_REGISTRATIONS_TABLE", "Registrations"),
			ParticipantsTable:  getEnv("AIRTABLE_PARTICIPANTS_TABLE", "Participants"),
		},
		Google: GoogleConfig{
			CalendarID:  getEnv("GOOGLE_CALENDAR_ID", ""),
			ClientEmail: getEnv("GOOGLE_CLIENT_EMAIL", ""),
			PrivateKey:  getEnv("GOOGLE_PRIVATE_KEY", ""),
			Subject:     getEnv("GOOGLE_IMPERSONATE_SUBJECT", ""),
		},
		Drive: DriveConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("DRIVE_BUCKET", "portal-event-assets"),
			RootPrefix:      getEnv("DRIVE_ROOT_PREFIX", "events"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Webhook: WebhookConfig{
			RegistrationURL: getEnv("REGISTRATION_WEBHOOK_URL", ""),
		},
		Sync: SyncConfig{
			Query:           getEnv("SYNC_CALENDAR_QUERY", ""),
			WindowPastDays:  getEnvInt("SYNC_WINDOW_PAST_DAYS", 30),
			IntervalMinutes: getEnvInt("SYNC_INTERVAL_MINUTES", 0),
		},
		Site: SiteConfig{
			BaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		},
	}
	return cfg, nil
}

// Validate checks that the record store is configured; everything else
// degrades feature-by-feature when absent.
func (c *Config) Validate() error {
	if c.Airtable.APIKey == "" || c.Airtable.BaseID == "" {
		return fmt.Errorf("missing Airtable configuration (AIRTABLE_API_KEY, AIRTABLE_BASE_ID)")
	}
	return nil
}

// NormalizePrivateKey turns deployed key material into usable PEM. Accepts a
// raw PEM string, a PEM with backslash-escaped newlines (the usual env-var
// mangling), or an entire JSON service-account key file.
func NormalizePrivateKey(material string) (string, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return "", fmt.Errorf("empty private key")
	}
	if strings.HasPrefix(material, "{") {
		var key struct {
			PrivateKey string `json:"private_key"`
		}
		if err := json.Unmarshal([]byte(material), &key); err != nil {
			return "", fmt.Errorf("parse service-account JSON: %w", err)
		}
		material = key.PrivateKey
	}
	material = strings.ReplaceAll(material, `\n`, "\n")
	if !strings.Contains(material, "-----BEGIN") {
		return "", fmt.Errorf("private key is not PEM encoded")
	}
	return material, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
