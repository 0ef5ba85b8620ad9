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

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional; events are skipped when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	ReminderInterval  time.Duration
	// WorkerMetricsPort serves the worker's /metrics; empty disables it.
	WorkerMetricsPort string

	// Login gate
	LoginUsername string
	LoginPassword string
	LoginHint     string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "movement_events"),

		ReminderInterval:  getEnvDuration("REMINDER_INTERVAL", 24*time.Hour),
		WorkerMetricsPort: getEnv("WORKER_METRICS_PORT", ""),

		LoginUsername: getEnv("LOGIN_USERNAME", "demo@gastosapp.dev"),
		LoginPassword: getEnv("LOGIN_PASSWORD", "finanzas123"),
		LoginHint:     getEnv("LOGIN_HINT", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.WorkerMetricsPort != "" {
		if port, err := strconv.Atoi(c.WorkerMetricsPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid worker metrics port '%s': must be a number between 1 and 65535", c.WorkerMetricsPort))
		} else if c.WorkerMetricsPort == c.Port {
			errors = append(errors, fmt.Sprintf("worker metrics port %d clashes with the API port", port))
		}
	}

	validBackends := []string{BackendMemory, BackendSQLite}
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

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
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

	if c.ReminderInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at least 1 minute", c.ReminderInterval))
	} else if c.ReminderInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reminder interval %v: must be at most 24 hours", c.ReminderInterval))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if strings.TrimSpace(c.LoginUsername) == "" || c.LoginPassword == "" {
		errors = append(errors, "login username and password cannot be empty")
	}

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
