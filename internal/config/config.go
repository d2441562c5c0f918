package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port string

	// Auth
	AuthPassword string

	// Backend selection
	DataBackend string

	// Read cache
	CacheTTL time.Duration

	// Sessions
	SessionTTL  time.Duration
	MaxSessions int

	// SQLite
	SQLiteDBPath string

	// MongoDB
	MongoURI    string
	MongoDBName string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Mirror worker
	MirrorBackend     string
	ReconcileInterval time.Duration

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Snapshots
	SnapshotSchedule string
	SnapshotDir      string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		AuthPassword: getEnv("AUTH_PASSWORD", "blackbelt"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		CacheTTL:    getEnvDuration("CACHE_TTL", 30*time.Second),
		SessionTTL:  getEnvDuration("SESSION_TTL", 8*time.Hour),
		MaxSessions: getEnvInt("MAX_SESSIONS", 1000),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/stocktake.db"),

		MongoURI:    getEnv("MONGO_URI", ""),
		MongoDBName: getEnv("MONGO_DB_NAME", "stocktake"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "stocktake"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		MirrorBackend:     getEnv("MIRROR_BACKEND", "sheets"),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 0),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Inventory"),

		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", ""),
		SnapshotDir:      getEnv("SNAPSHOT_DIR", "./data/snapshots"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.AuthPassword == "" {
		errors = append(errors, "auth password cannot be empty")
	}

	// Validate data backend
	validBackends := []string{"memory", "sheets", "sqlite", "mongo"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 7 days", c.SessionTTL))
	}

	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate MongoDB configuration if backend is mongo
	if c.DataBackend == "mongo" {
		if c.MongoURI == "" {
			errors = append(errors, "Mongo URI is required when using mongo backend")
		} else if parsedURL, err := url.Parse(c.MongoURI); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI '%s': %v", c.MongoURI, err))
		} else if parsedURL.Scheme != "mongodb" && parsedURL.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", parsedURL.Scheme))
		}
		if c.MongoDBName == "" {
			errors = append(errors, "Mongo database name cannot be empty when using mongo backend")
		}
	}

	// Validate Google Sheets configuration if backend is sheets.
	// Service account credentials are read straight from the environment
	// by the sheets client, so they are not validated here.
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	// Validate AMQP URL if provided
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

	// Validate mirror worker settings
	if c.MirrorBackend != "" {
		isValidMirror := false
		for _, backend := range validBackends {
			if c.MirrorBackend == backend {
				isValidMirror = true
				break
			}
		}
		if !isValidMirror {
			errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
		}
	}
	if c.ReconcileInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must not be negative", c.ReconcileInterval))
	} else if c.ReconcileInterval > 0 && c.ReconcileInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 minute", c.ReconcileInterval))
	}

	// Validate snapshot schedule if provided
	if c.SnapshotSchedule != "" {
		if _, err := cron.ParseStandard(c.SnapshotSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid snapshot schedule '%s': %v", c.SnapshotSchedule, err))
		}
		if c.SnapshotDir == "" {
			errors = append(errors, "snapshot directory cannot be empty when a snapshot schedule is set")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
