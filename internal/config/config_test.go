package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:         "8081",
		AuthPassword: "blackbelt",
		DataBackend:  "memory",
		CacheTTL:     30 * time.Second,
		SessionTTL:   8 * time.Hour,
		MaxSessions:  1000,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid memory backend config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "valid sqlite backend config",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = "./test.db"
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			mutate: func(c *Config) {
				c.Port = "abc"
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range low",
			mutate: func(c *Config) {
				c.Port = "0"
			},
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name: "invalid port - out of range high",
			mutate: func(c *Config) {
				c.Port = "70000"
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "empty auth password",
			mutate: func(c *Config) {
				c.AuthPassword = ""
			},
			wantErr:     true,
			errorString: "auth password cannot be empty",
		},
		{
			name: "invalid data backend",
			mutate: func(c *Config) {
				c.DataBackend = "postgres"
			},
			wantErr:     true,
			errorString: "invalid data backend 'postgres': must be one of [memory sheets sqlite mongo]",
		},
		{
			name: "negative cache TTL",
			mutate: func(c *Config) {
				c.CacheTTL = -time.Second
			},
			wantErr:     true,
			errorString: "invalid cache TTL -1s: must not be negative",
		},
		{
			name: "session TTL too short",
			mutate: func(c *Config) {
				c.SessionTTL = 30 * time.Second
			},
			wantErr:     true,
			errorString: "invalid session TTL 30s: must be at least 1 minute",
		},
		{
			name: "session TTL too long",
			mutate: func(c *Config) {
				c.SessionTTL = 8 * 24 * time.Hour
			},
			wantErr:     true,
			errorString: "invalid session TTL 192h0m0s: must be at most 7 days",
		},
		{
			name: "invalid max sessions",
			mutate: func(c *Config) {
				c.MaxSessions = 0
			},
			wantErr:     true,
			errorString: "invalid max sessions 0: must be at least 1",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name: "mongo backend missing URI",
			mutate: func(c *Config) {
				c.DataBackend = "mongo"
				c.MongoDBName = "stocktake"
			},
			wantErr:     true,
			errorString: "Mongo URI is required when using mongo backend",
		},
		{
			name: "mongo backend bad URI scheme",
			mutate: func(c *Config) {
				c.DataBackend = "mongo"
				c.MongoURI = "http://localhost:27017"
				c.MongoDBName = "stocktake"
			},
			wantErr:     true,
			errorString: "invalid Mongo URI scheme 'http': must be 'mongodb' or 'mongodb+srv'",
		},
		{
			name: "mongo backend missing database name",
			mutate: func(c *Config) {
				c.DataBackend = "mongo"
				c.MongoURI = "mongodb://localhost:27017"
				c.MongoDBName = ""
			},
			wantErr:     true,
			errorString: "Mongo database name cannot be empty when using mongo backend",
		},
		{
			name: "sheets backend missing spreadsheet ID",
			mutate: func(c *Config) {
				c.DataBackend = "sheets"
				c.GoogleSpreadsheetID = ""
				c.GoogleSheetName = "Inventory"
			},
			wantErr:     true,
			errorString: "Google Spreadsheet ID is required when using sheets backend",
		},
		{
			name: "sheets backend missing sheet name",
			mutate: func(c *Config) {
				c.DataBackend = "sheets"
				c.GoogleSpreadsheetID = "123456789"
				c.GoogleSheetName = ""
			},
			wantErr:     true,
			errorString: "Google Sheet name is required when using sheets backend",
		},
		{
			name: "invalid AMQP URL scheme",
			mutate: func(c *Config) {
				c.AMQPURL = "http://localhost:5672/"
				c.AMQPExchange = "stocktake"
				c.AMQPQueue = "ledger_events"
			},
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name: "AMQP URL without exchange",
			mutate: func(c *Config) {
				c.AMQPURL = "amqp://localhost:5672/"
				c.AMQPExchange = ""
				c.AMQPQueue = "ledger_events"
			},
			wantErr:     true,
			errorString: "AMQP exchange name cannot be empty when AMQP URL is provided",
		},
		{
			name: "AMQP URL without queue",
			mutate: func(c *Config) {
				c.AMQPURL = "amqp://localhost:5672/"
				c.AMQPExchange = "stocktake"
				c.AMQPQueue = ""
			},
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name: "invalid mirror backend",
			mutate: func(c *Config) {
				c.MirrorBackend = "postgres"
			},
			wantErr:     true,
			errorString: "invalid mirror backend 'postgres': must be one of [memory sheets sqlite mongo]",
		},
		{
			name: "negative reconcile interval",
			mutate: func(c *Config) {
				c.ReconcileInterval = -time.Minute
			},
			wantErr:     true,
			errorString: "invalid reconcile interval -1m0s: must not be negative",
		},
		{
			name: "reconcile interval too short",
			mutate: func(c *Config) {
				c.ReconcileInterval = 30 * time.Second
			},
			wantErr:     true,
			errorString: "invalid reconcile interval 30s: must be at least 1 minute",
		},
		{
			name: "invalid snapshot schedule",
			mutate: func(c *Config) {
				c.SnapshotSchedule = "every other tuesday"
				c.SnapshotDir = "./snapshots"
			},
			wantErr:     true,
			errorString: "invalid snapshot schedule 'every other tuesday'",
		},
		{
			name: "snapshot schedule without directory",
			mutate: func(c *Config) {
				c.SnapshotSchedule = "55 23 * * *"
				c.SnapshotDir = ""
			},
			wantErr:     true,
			errorString: "snapshot directory cannot be empty when a snapshot schedule is set",
		},
		{
			name: "valid snapshot schedule",
			mutate: func(c *Config) {
				c.SnapshotSchedule = "55 23 * * *"
				c.SnapshotDir = "./snapshots"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"PORT":          os.Getenv("PORT"),
		"AUTH_PASSWORD": os.Getenv("AUTH_PASSWORD"),
		"DATA_BACKEND":  os.Getenv("DATA_BACKEND"),
		"CACHE_TTL":     os.Getenv("CACHE_TTL"),
		"SESSION_TTL":   os.Getenv("SESSION_TTL"),
		"MAX_SESSIONS":  os.Getenv("MAX_SESSIONS"),
	}

	// Clean environment
	for key := range originalVars {
		os.Unsetenv(key)
	}

	// Restore env vars at end of test
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.AuthPassword != "blackbelt" {
			t.Errorf("Load() AuthPassword = %v, want blackbelt", cfg.AuthPassword)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("Load() DataBackend = %v, want memory", cfg.DataBackend)
		}
		if cfg.CacheTTL != 30*time.Second {
			t.Errorf("Load() CacheTTL = %v, want 30s", cfg.CacheTTL)
		}
		if cfg.SessionTTL != 8*time.Hour {
			t.Errorf("Load() SessionTTL = %v, want 8h", cfg.SessionTTL)
		}
		if cfg.MaxSessions != 1000 {
			t.Errorf("Load() MaxSessions = %v, want 1000", cfg.MaxSessions)
		}
		if cfg.SnapshotSchedule != "" {
			t.Errorf("Load() SnapshotSchedule = %v, want disabled by default", cfg.SnapshotSchedule)
		}
		if cfg.MirrorBackend != "sheets" {
			t.Errorf("Load() MirrorBackend = %v, want sheets", cfg.MirrorBackend)
		}
		if cfg.ReconcileInterval != 0 {
			t.Errorf("Load() ReconcileInterval = %v, want disabled by default", cfg.ReconcileInterval)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("AUTH_PASSWORD", "opensesame")
		os.Setenv("DATA_BACKEND", "sqlite")
		os.Setenv("CACHE_TTL", "45s")
		os.Setenv("SESSION_TTL", "2h")
		os.Setenv("MAX_SESSIONS", "25")

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.AuthPassword != "opensesame" {
			t.Errorf("Load() AuthPassword = %v, want opensesame", cfg.AuthPassword)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
		}
		if cfg.CacheTTL != 45*time.Second {
			t.Errorf("Load() CacheTTL = %v, want 45s", cfg.CacheTTL)
		}
		if cfg.SessionTTL != 2*time.Hour {
			t.Errorf("Load() SessionTTL = %v, want 2h", cfg.SessionTTL)
		}
		if cfg.MaxSessions != 25 {
			t.Errorf("Load() MaxSessions = %v, want 25", cfg.MaxSessions)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		os.Setenv("CACHE_TTL", "invalid")
		os.Setenv("MAX_SESSIONS", "invalid")

		cfg := Load()

		if cfg.CacheTTL != 30*time.Second {
			t.Errorf("Load() CacheTTL = %v, want 30s (default for invalid input)", cfg.CacheTTL)
		}
		if cfg.MaxSessions != 1000 {
			t.Errorf("Load() MaxSessions = %v, want 1000 (default for invalid input)", cfg.MaxSessions)
		}
	})
}

// Helper function to check if string contains substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || func() bool {
		for i := 0; i <= len(s)-len(substr); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}())
}
