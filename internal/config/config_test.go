package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/taxi/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TAXI_ADDR", "PORT", "TAXI_DATABASE_PATH", "TAXI_EXPORT_DIR", "TAXI_EXPORT_CLEANUP_DELAY",
		"TAXI_MAX_UPLOAD_BYTES", "EMAIL_USER", "EMAIL_PASS", "SMTP_HOST", "SMTP_PORT", "EMAIL_FROM",
		"LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":3001" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":3001")
	}
	if cfg.DatabasePath != "taxi_requests.db" {
		t.Fatalf("unexpected DatabasePath: got %q", cfg.DatabasePath)
	}
	if cfg.Export.CleanupDelay != 5*time.Second {
		t.Fatalf("unexpected CleanupDelay: got %v", cfg.Export.CleanupDelay)
	}
	if cfg.Export.MaxUploadBytes != 5*1024*1024 {
		t.Fatalf("unexpected MaxUploadBytes: got %d", cfg.Export.MaxUploadBytes)
	}
	if cfg.Mail.Port != 587 || cfg.Mail.User != "" {
		t.Fatalf("unexpected mail defaults: %+v", cfg.Mail)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("EMAIL_USER", "frota@gmail.com")
	t.Setenv("EMAIL_PASS", "app-pass")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("TAXI_EXPORT_CLEANUP_DELAY", "1m")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("PORT not applied: %q", cfg.Addr)
	}
	if cfg.Mail.User != "frota@gmail.com" || cfg.Mail.Password != "app-pass" || cfg.Mail.Port != 465 {
		t.Fatalf("mail env not applied: %+v", cfg.Mail)
	}
	if cfg.Export.CleanupDelay != time.Minute {
		t.Fatalf("cleanup delay not applied: %v", cfg.Export.CleanupDelay)
	}

	t.Setenv("TAXI_ADDR", "127.0.0.1:9000")
	cfg, _ = config.LoadConfig("")
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("TAXI_ADDR should win over PORT, got %q", cfg.Addr)
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMTP_PORT", "abc")
	if _, err := config.LoadConfig(""); err == nil {
		t.Fatalf("expected error for non-numeric SMTP_PORT")
	}

	clearEnv(t)
	t.Setenv("TAXI_EXPORT_CLEANUP_DELAY", "soon")
	if _, err := config.LoadConfig(""); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9090\"\ntimeout: \"30s\"\ndatabase_path: \"test.db\"\nexport:\n  dir: \"/tmp/out\"\n  cleanup_delay: \"10s\"\nmail:\n  host: \"smtp.empresa.com.br\"\nlog:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}

	if cfg.Addr != ":9090" || cfg.DatabasePath != "test.db" || cfg.APITimeout != 30*time.Second {
		t.Fatalf("file overrides not applied: %+v", cfg)
	}
	if cfg.Export.Dir != "/tmp/out" || cfg.Export.CleanupDelay != 10*time.Second {
		t.Fatalf("export overrides not applied: %+v", cfg.Export)
	}
	// keys absent from the file keep their defaults
	if cfg.Export.MaxUploadBytes != 5<<20 || cfg.Mail.Port != 587 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Mail.Host != "smtp.empresa.com.br" || cfg.Log.Level != "debug" {
		t.Fatalf("nested overrides not applied: %+v %+v", cfg.Mail, cfg.Log)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml :::"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("EMAIL_USER=dotenv@empresa.com.br\nSMTP_HOST=smtp.empresa.com.br\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overrides variables that are already set
	os.Unsetenv("EMAIL_USER")
	os.Unsetenv("SMTP_HOST")

	if err := config.LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("EMAIL_USER")
		os.Unsetenv("SMTP_HOST")
	})

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mail.User != "dotenv@empresa.com.br" || cfg.Mail.Host != "smtp.empresa.com.br" {
		t.Fatalf(".env values not applied: %+v", cfg.Mail)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	bad := *cfg
	bad.DatabasePath = ""
	bad.Export.MaxUploadBytes = 0
	bad.Log.Level = "verbose"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}

	bad = *cfg
	bad.Workers = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected validation error for zero workers")
	}
}
