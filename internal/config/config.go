package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Snapshot backend
	SnapshotPath string

	// SQLite backend
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Seed a demo budget on first start
	SeedDemoData bool

	// Keepalive pinger
	PingTargetURL string
	PingInterval  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", "snapshot"),
		SnapshotPath: getEnv("SNAPSHOT_PATH", "./data/finbudget.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finbudget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finbudget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_changes"),

		SeedDemoData: getEnvBool("SEED_DEMO_DATA", false),

		PingTargetURL: getEnv("PING_TARGET_URL", ""),
		PingInterval:  getEnvDuration("PING_INTERVAL", 14*time.Minute),
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

	// Validate data backend
	validBackends := []string{"snapshot", "sqlite"}
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

	// Validate snapshot configuration if backend is snapshot
	if c.DataBackend == "snapshot" {
		if c.SnapshotPath == "" {
			errors = append(errors, "snapshot path cannot be empty when using snapshot backend")
		} else {
			errors = append(errors, ensureDir(c.SnapshotPath, "snapshot")...)
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			errors = append(errors, ensureDir(c.SQLiteDBPath, "SQLite database")...)
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

	// Validate ping target URL if provided
	if c.PingTargetURL != "" {
		if parsedURL, err := url.Parse(c.PingTargetURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid ping target URL '%s': %v", c.PingTargetURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid ping target URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.PingInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid ping interval %v: must be at least 1 second", c.PingInterval))
	} else if c.PingInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid ping interval %v: must be at most 24 hours", c.PingInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(path, label string) []string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return []string{fmt.Sprintf("cannot create %s directory '%s': %v", label, dir, err)}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
