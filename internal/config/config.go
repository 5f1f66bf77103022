package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"

	"github.com/example/reviewq/internal/database"
	"github.com/example/reviewq/internal/spaced_repetition"
)

// Config is the runtime configuration of reviewq.
type Config struct {
	Database database.Options

	// Location decides which calendar day "today" is.
	Location *time.Location
	Policy   spaced_repetition.Policy

	MaxConflictRetries int

	TelegramToken   string
	ReminderTime    string
	EnableScheduler bool
	Debug           bool
}

// LoadConfig reads .env (if present) and the environment. Variables already
// set in the environment win over .env entries.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file loaded, using environment variables")
	}

	cfg := &Config{
		Database: database.Options{
			Type: getEnv("DB_TYPE", "sqlite"),
			Path: getEnv("DB_PATH", "data/reviewq.db"),
			URL:  getEnv("DATABASE_URL", ""),
		},
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		ReminderTime:  getEnv("REMINDER_TIME", "09:00"),
	}

	var err error
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if cfg.MaxConflictRetries, err = getEnvInt("MAX_CONFLICT_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MaxConflictRetries < 0 {
		return nil, fmt.Errorf("invalid MAX_CONFLICT_RETRIES %d: must not be negative", cfg.MaxConflictRetries)
	}
	if cfg.EnableScheduler, err = getEnvBool("ENABLE_SCHEDULER", true); err != nil {
		return nil, err
	}
	if cfg.Debug, err = getEnvBool("DEBUG", false); err != nil {
		return nil, err
	}
	if _, err := time.Parse("15:04", cfg.ReminderTime); err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIME %q: want HH:MM", cfg.ReminderTime)
	}

	if cfg.Policy, err = loadPolicy(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadPolicy starts from the defaults, applies the env overrides and then
// the optional YAML file.
func loadPolicy() (spaced_repetition.Policy, error) {
	p := spaced_repetition.DefaultPolicy()

	if raw, ok := os.LookupEnv("REVIEW_CYCLE_DAYS"); ok && strings.TrimSpace(raw) != "" {
		days, err := parseIntList(raw)
		if err != nil {
			return p, fmt.Errorf("invalid REVIEW_CYCLE_DAYS: %w", err)
		}
		p.CycleDays = days
	}
	var err error
	if p.OverdueGraceDays, err = getEnvInt("OVERDUE_GRACE_DAYS", p.OverdueGraceDays); err != nil {
		return p, err
	}
	if p.RelapseDays, err = getEnvInt("MASTERED_RELAPSE_DAYS", p.RelapseDays); err != nil {
		return p, err
	}

	if path := getEnv("REVIEW_POLICY_FILE", ""); path != "" {
		return spaced_repetition.LoadPolicyFile(path, p)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func parseIntList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
