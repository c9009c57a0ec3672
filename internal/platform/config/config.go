package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "regdesk/pkg/platform/strings"
)

// Spreadsheet backends.
const (
	BackendXLSX   = "xlsx"
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	Sheets    Sheets
	Roster    Roster
	Redis     RedisConfig
	Admin     Admin
	RateLimit RateLimit
	Regions   string
	TraceOut  bool
}

// Sheets selects and tunes the spreadsheet backend.
type Sheets struct {
	Backend               string
	Name                  string
	SpreadsheetID         string
	RegistrationWorksheet string
	SourceWorksheets      []string
	CredentialsFile       string
	XLSXDir               string
	XLSXCreate            bool
	RetryAttempts         int
	RetryBackoff          time.Duration
}

// Roster controls caching of the normalized table.
type Roster struct {
	CacheTTL time.Duration
}

// RedisConfig enables the shared roster cache when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Admin configures dashboard authentication.
type Admin struct {
	Token             string
	PasswordHash      string
	SessionSigningKey string
	SessionTTL        time.Duration
}

// RateLimit bounds submissions and admin sign-in attempts per client IP.
// Buckets live in Redis when it is configured.
type RateLimit struct {
	Disabled               bool
	RegistrationsPerMinute int
	LoginAttemptsPerMinute int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	duration := func(key string, def time.Duration) time.Duration {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}
	integer := func(key string, def int) int {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, raw))
			return def
		}
		return n
	}
	boolean := func(key string, def bool) bool {
		raw := os.Getenv(key)
		if raw == "" {
			return def
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid boolean %q", key, raw))
			return def
		}
		return b
	}

	registration := envOr("REGISTRATION_WORKSHEET", "national_wk")
	sources := pstrings.SplitList(os.Getenv("SOURCE_WORKSHEETS"))
	if len(sources) == 0 {
		sources = []string{"national_wk", "manual_wk"}
	}

	cfg := Server{
		Addr:      envOr("REGDESK_ADDR", ":8080"),
		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),
		Sheets: Sheets{
			Backend:               strings.ToLower(envOr("SPREADSHEET_BACKEND", BackendXLSX)),
			Name:                  envOr("SPREADSHEET_NAME", "mini_congress"),
			SpreadsheetID:         os.Getenv("SPREADSHEET_ID"),
			RegistrationWorksheet: registration,
			SourceWorksheets:      sources,
			CredentialsFile:       os.Getenv("GOOGLE_CREDENTIALS_FILE"),
			XLSXDir:               envOr("XLSX_DIR", "./data"),
			XLSXCreate:            boolean("XLSX_CREATE", true),
			RetryAttempts:         integer("SHEETS_RETRY_ATTEMPTS", 3),
			RetryBackoff:          duration("SHEETS_RETRY_BACKOFF", 2*time.Second),
		},
		Roster: Roster{
			CacheTTL: duration("ROSTER_CACHE_TTL", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Admin: Admin{
			Token:             os.Getenv("ADMIN_TOKEN"),
			PasswordHash:      os.Getenv("ADMIN_PASSWORD_HASH"),
			SessionSigningKey: os.Getenv("SESSION_SIGNING_KEY"),
			SessionTTL:        duration("SESSION_TTL", 8*time.Hour),
		},
		RateLimit: RateLimit{
			Disabled:               boolean("RATE_LIMIT_DISABLED", false),
			RegistrationsPerMinute: integer("RATE_LIMIT_REGISTRATIONS_PER_MINUTE", 30),
			LoginAttemptsPerMinute: integer("RATE_LIMIT_LOGINS_PER_MINUTE", 5),
		},
		Regions:  os.Getenv("REGIONS_FILE"),
		TraceOut: boolean("TRACE_STDOUT", false),
	}

	switch cfg.Sheets.Backend {
	case BackendXLSX, BackendMemory:
	case BackendGoogle:
		if cfg.Sheets.CredentialsFile == "" {
			errs = append(errs, "GOOGLE_CREDENTIALS_FILE is required for the google backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("SPREADSHEET_BACKEND: unknown backend %q", cfg.Sheets.Backend))
	}
	if !contains(cfg.Sheets.SourceWorksheets, registration) {
		errs = append(errs, fmt.Sprintf("REGISTRATION_WORKSHEET %q must be one of SOURCE_WORKSHEETS", registration))
	}
	if cfg.Admin.SessionSigningKey == "" {
		// Use a default for development - should be overridden in production
		cfg.Admin.SessionSigningKey = "dev-secret-key-change-in-production"
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
