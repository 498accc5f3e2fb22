// Package config loads runtime settings from CHORECHART_* environment
// variables, optionally preloaded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/chorechart/internal/backup"
	"github.com/dukerupert/chorechart/internal/logging"
	"github.com/dukerupert/chorechart/internal/media"
	"github.com/dukerupert/chorechart/internal/model"

	"github.com/joho/godotenv"
)

const prefix = "CHORECHART_"

type Config struct {
	Port     string
	DBPath   string
	LogLevel  string
	LogFormat string
	Location  *time.Location

	// Display names applied to the participants at startup when set.
	DisplayNames map[model.Participant]string

	RewardParticipant model.Participant
	AdminParticipant  model.Participant

	SessionTTL     time.Duration
	SecureCookies  bool
	OriginPatterns []string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string
	ReminderHour    int

	Media  media.Config
	Backup backup.Config
}

// Load reads envFile when it exists (variables already set in the process
// win), then builds and validates the config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:      getenv("PORT", "8080"),
		DBPath:    getenv("DB_PATH", "chorechart.db"),
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "text")),
		DisplayNames: map[model.Participant]string{
			model.P1: getenv("P1_NAME", ""),
			model.P2: getenv("P2_NAME", ""),
		},
		SessionTTL:      getdur("SESSION_TTL", 30*24*time.Hour),
		SecureCookies:   getbool("SECURE_COOKIES", false),
		OriginPatterns:  splitCSV(getenv("ORIGIN_PATTERNS", "")),
		VAPIDPublicKey:  getenv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getenv("VAPID_PRIVATE_KEY", ""),
		PushSubscriber:  getenv("PUSH_SUBSCRIBER", "mailto:noreply@chorechart.app"),
		ReminderHour:    getint("REMINDER_HOUR", 8),
		Media: media.Config{
			Bucket:    getenv("S3_BUCKET", ""),
			Region:    getenv("S3_REGION", "us-east-1"),
			Endpoint:  getenv("S3_ENDPOINT", ""),
			AccessKey: getenv("S3_ACCESS_KEY", ""),
			SecretKey: getenv("S3_SECRET_KEY", ""),
		},
	}

	cfg.Backup = backup.Config{
		S3:         cfg.Media,
		Passphrase: getenv("BACKUP_PASSPHRASE", ""),
		Hour:       getint("BACKUP_HOUR", 3),
		Retention:  time.Duration(getint("BACKUP_RETENTION_DAYS", 30)) * 24 * time.Hour,
	}

	var err error
	if cfg.Location, err = time.LoadLocation(getenv("TIMEZONE", "Local")); err != nil {
		return cfg, fmt.Errorf("%sTIMEZONE: %w", prefix, err)
	}
	if cfg.RewardParticipant, err = model.ParseParticipant(getenv("REWARD_PARTICIPANT", string(model.P2))); err != nil {
		return cfg, fmt.Errorf("%sREWARD_PARTICIPANT: %w", prefix, err)
	}
	if cfg.AdminParticipant, err = model.ParseParticipant(getenv("ADMIN_PARTICIPANT", string(model.P1))); err != nil {
		return cfg, fmt.Errorf("%sADMIN_PARTICIPANT: %w", prefix, err)
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, errors.New(prefix + "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return cfg, errors.New(prefix + "LOG_FORMAT must be text or json")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New(prefix + "DB_PATH must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New(prefix + "SESSION_TTL must be > 0")
	}
	if cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return cfg, errors.New(prefix + "REMINDER_HOUR must be between 0 and 23")
	}
	if cfg.Backup.Hour < 0 || cfg.Backup.Hour > 23 {
		return cfg, errors.New(prefix + "BACKUP_HOUR must be between 0 and 23")
	}
	if (cfg.VAPIDPublicKey == "") != (cfg.VAPIDPrivateKey == "") {
		return cfg, errors.New(prefix + "VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(prefix + k); ok && v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := getenv(k, ""); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(getenv(k, ""))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := getenv(k, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
