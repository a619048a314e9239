package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebPort != 8080 {
		t.Errorf("WebPort = %d, want default 8080", cfg.WebPort)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("WEB_PORT", "9999")
	t.Setenv("DATA_RETENTION_DAYS", "14")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebPort != 9999 {
		t.Errorf("WebPort = %d, want 9999 from env", cfg.WebPort)
	}
	if cfg.DataRetentionDays != 14 {
		t.Errorf("DataRetentionDays = %d, want 14 from env", cfg.DataRetentionDays)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "netwatch-*.hcl")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`web_port = 7000` + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	t.Setenv("WEB_PORT", "7777")

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebPort != 7777 {
		t.Errorf("env should override file value, WebPort = %d, want 7777", cfg.WebPort)
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("NETWATCH_CONFIG", "/etc/netwatch/config.hcl")
	if got := PathFromEnv(""); got != "/etc/netwatch/config.hcl" {
		t.Errorf("PathFromEnv(\"\") = %q", got)
	}
	if got := PathFromEnv("/custom.hcl"); got != "/custom.hcl" {
		t.Errorf("explicit flag value should win, got %q", got)
	}
}
