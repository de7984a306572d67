package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"budgetconv/internal/workbook"
)

// Sheet backends selectable with SHEETS_BACKEND.
const (
	SheetsBackendNone   = "none"
	SheetsBackendMemory = "memory"
	SheetsBackendGoogle = "sheets"
)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	// TrustedProxies lists CIDRs whose X-Forwarded-For header is honored.
	TrustedProxies []string

	// Artifacts
	ArtifactTTL       time.Duration
	ArtifactCacheSize int

	// Conversion defaults
	OutputFormat string
	KeepSuffix   bool

	// Worker
	InboxDir          string
	OutboxDir         string
	WorkerConcurrency int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sheet backend
	SheetsBackend string
	DataDir       string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleOutputSheetName     string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		ArtifactTTL:       getEnvDuration("ARTIFACT_TTL", 15*time.Minute),
		ArtifactCacheSize: getEnvInt("ARTIFACT_CACHE_SIZE", 64),

		OutputFormat: getEnv("OUTPUT_FORMAT", string(workbook.XLSX)),
		KeepSuffix:   getEnvBool("KEEP_SUFFIX", true),

		InboxDir:          getEnv("INBOX_DIR", "./data/inbox"),
		OutboxDir:         getEnv("OUTBOX_DIR", "./data/outbox"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetconv"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "conversion_jobs"),

		SheetsBackend: getEnv("SHEETS_BACKEND", SheetsBackendNone),
		DataDir:       getEnv("DATA_DIR", "./data/sheets"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleOutputSheetName:     getEnv("GOOGLE_OUTPUT_SHEET_NAME", workbook.SheetName),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.ArtifactTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid artifact TTL %v: must be at least 1 second", c.ArtifactTTL))
	} else if c.ArtifactTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid artifact TTL %v: must be at most 24 hours", c.ArtifactTTL))
	}
	if c.ArtifactCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid artifact cache size %d: must be at least 1", c.ArtifactCacheSize))
	}

	if f, err := workbook.ParseFormat(c.OutputFormat); err != nil {
		errors = append(errors, fmt.Sprintf("invalid output format '%s': must be one of xlsx, csv, sqlite", c.OutputFormat))
	} else if !f.Encodable() {
		errors = append(errors, fmt.Sprintf("invalid output format '%s': must be one of xlsx, csv, sqlite", c.OutputFormat))
	}

	if c.WorkerConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at least 1", c.WorkerConcurrency))
	} else if c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be at most 64", c.WorkerConcurrency))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.SheetsBackend {
	case SheetsBackendNone:
	case SheetsBackendMemory:
		if c.DataDir == "" {
			errors = append(errors, "DATA_DIR cannot be empty when using memory sheets backend")
		}
	case SheetsBackendGoogle:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != "" || c.GoogleApplicationCredFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		for _, path := range []string{c.GoogleServiceAccountFile, c.GoogleApplicationCredFile} {
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", path))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid sheets backend '%s': must be one of none, memory, sheets", c.SheetsBackend))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
