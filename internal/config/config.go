package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Catalog only, login endpoints disabled
	AuthModeLocal AuthMode = "local" // Local user database with sessions (default)
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Content
		Progress
		Sessions
		Tasks
		Events
		Study
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   DatabaseDriver
		Path     string // SQLite file, also anchors the tasks database
		DSN      string // Postgres connection string
		LogLevel string // silent, error, warn, info
	}
	Auth struct {
		Mode              AuthMode
		SessionSecret     string
		SessionLifetime   time.Duration
		BcryptCost        int
		MinPasswordLength int
		SecureCookies     bool // Set to false for local dev without HTTPS
		CSRFEnabled       bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Content struct {
		WordsCacheSize  int // Number of books whose word lists stay cached
		MaxWordsPerBook int
	}
	Progress struct {
		KeyPrefix    string
		SyncEnabled  bool
		SyncSchedule string // Cron format: "*/15 * * * *" = every 15 minutes
	}
	Sessions struct {
		RegistrySize  int
		RegistryTTL   time.Duration
		SweepSchedule string // Cron format, evicts idle clients
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Events struct {
		Enabled         bool
		RetentionDays   int
		CleanupSchedule string
	}
	Study struct {
		ProgressDir string // Local progress store for the terminal client
	}
)

// loadDotEnv reads .env from the working directory when present.
// Variables already set in the environment win.
func loadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			log.Printf("Loaded environment from %s", f)
		}
	}
}

func NewConfig(envFiles ...string) *Config {
	loadDotEnv(envFiles...)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "720h") // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_min_password_length", 8)   // Minimum password length
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_csrf_enabled", true)       // CSRF tokens on unsafe methods
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	v.SetDefault("content_words_cache_size", 64)
	v.SetDefault("content_max_words_per_book", DefaultMaxWordsPerBook)

	v.SetDefault("progress_key_prefix", DefaultProgressKeyPrefix)
	v.SetDefault("progress_sync_enabled", true)
	v.SetDefault("progress_sync_schedule", "*/15 * * * *")

	v.SetDefault("session_registry_size", 1024)
	v.SetDefault("session_registry_ttl", "2h")
	v.SetDefault("session_sweep_schedule", "*/5 * * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("events_enabled", true)
	v.SetDefault("events_retention_days", 90)
	v.SetDefault("events_cleanup_schedule", "30 3 * * *") // Daily at 03:30

	v.SetDefault("study_progress_dir", DefaultStudyProgressDir())

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Auth: Auth{
			Mode:              AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:     v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:   v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
			MinPasswordLength: v.GetInt("AUTH_MIN_PASSWORD_LENGTH"),
			SecureCookies:     v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:       v.GetBool("AUTH_CSRF_ENABLED"),
			MaxLoginAttempts:  v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Content: Content{
			WordsCacheSize:  v.GetInt("CONTENT_WORDS_CACHE_SIZE"),
			MaxWordsPerBook: v.GetInt("CONTENT_MAX_WORDS_PER_BOOK"),
		},
		Progress: Progress{
			KeyPrefix:    v.GetString("PROGRESS_KEY_PREFIX"),
			SyncEnabled:  v.GetBool("PROGRESS_SYNC_ENABLED"),
			SyncSchedule: v.GetString("PROGRESS_SYNC_SCHEDULE"),
		},
		Sessions: Sessions{
			RegistrySize:  v.GetInt("SESSION_REGISTRY_SIZE"),
			RegistryTTL:   v.GetDuration("SESSION_REGISTRY_TTL"),
			SweepSchedule: v.GetString("SESSION_SWEEP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Events: Events{
			Enabled:         v.GetBool("EVENTS_ENABLED"),
			RetentionDays:   v.GetInt("EVENTS_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("EVENTS_CLEANUP_SCHEDULE"),
		},
		Study: Study{
			ProgressDir: v.GetString("STUDY_PROGRESS_DIR"),
		},
	}
}
