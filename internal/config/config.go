package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr           string        `yaml:"addr"`
	APITimeout     time.Duration `yaml:"timeout"`
	DatabasePath   string        `yaml:"database_path"`
	MigrateOnStart bool          `yaml:"migrate_on_start"`
	Workers        int           `yaml:"workers"`
	Export         ExportConfig  `yaml:"export"`
	Mail           MailConfig    `yaml:"mail"`
	Log            LogConfig     `yaml:"log"`
}

type ExportConfig struct {
	Dir            string        `yaml:"dir"`
	CleanupDelay   time.Duration `yaml:"cleanup_delay"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// MailConfig holds SMTP settings. Leaving User or Password empty disables
// email sending.
type MailConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfig builds the configuration from defaults and environment
// variables, then applies the YAML file at path when one is given.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:           getEnv("TAXI_ADDR", ":"+getEnv("PORT", "3001")),
		APITimeout:     15 * time.Second,
		DatabasePath:   getEnv("TAXI_DATABASE_PATH", "taxi_requests.db"),
		MigrateOnStart: true,
		Workers:        1,
		Export: ExportConfig{
			Dir:            getEnv("TAXI_EXPORT_DIR", "exports"),
			CleanupDelay:   5 * time.Second,
			MaxUploadBytes: 5 << 20,
		},
		Mail: MailConfig{
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
			Host:     os.Getenv("SMTP_HOST"),
			Port:     587,
			From:     os.Getenv("EMAIL_FROM"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  10,
			MaxBackups: 7,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}

	var err error
	if cfg.Export.CleanupDelay, err = getEnvDuration("TAXI_EXPORT_CLEANUP_DELAY", cfg.Export.CleanupDelay); err != nil {
		return nil, err
	}
	if cfg.Export.MaxUploadBytes, err = getEnvInt64("TAXI_MAX_UPLOAD_BYTES", cfg.Export.MaxUploadBytes); err != nil {
		return nil, err
	}
	port, err := getEnvInt64("SMTP_PORT", int64(cfg.Mail.Port))
	if err != nil {
		return nil, err
	}
	cfg.Mail.Port = int(port)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Workers <= 0 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if c.Export.Dir == "" {
		errs = append(errs, errors.New("export.dir is required"))
	}
	if c.Export.CleanupDelay < 0 {
		errs = append(errs, errors.New("export.cleanup_delay must not be negative"))
	}
	if c.Export.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("export.max_upload_bytes must be positive"))
	}
	if c.Mail.Port < 0 || c.Mail.Port > 65535 {
		errs = append(errs, fmt.Errorf("mail.port %d out of range", c.Mail.Port))
	}
	if !logLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
