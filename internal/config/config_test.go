package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/account-monitor/internal/models"
	"github.com/account-monitor/internal/types"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SYNC_DELAY_SECONDS", "60")
	t.Setenv("SYNC_CURRENCY", "usd")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("QT_PRACTICE", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %v, want %v", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Sync.Delay != 60*time.Second {
		t.Errorf("Sync.Delay = %v, want %v", cfg.Sync.Delay, 60*time.Second)
	}
	if cfg.Sync.Currency != types.CurrencyUSD {
		t.Errorf("Sync.Currency = %v, want %v", cfg.Sync.Currency, types.CurrencyUSD)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Errorf("Store.Backend = %v, want %v", cfg.Store.Backend, BackendRedis)
	}
	if !cfg.Auth.Practice {
		t.Errorf("Auth.Practice = false, want true")
	}
	if want := filepath.Join(dir, "auth.json"); cfg.Auth.FilePath != want {
		t.Errorf("Auth.FilePath = %v, want %v", cfg.Auth.FilePath, want)
	}
	if want := filepath.Join(dir, "db.json"); cfg.Store.FilePath != want {
		t.Errorf("Store.FilePath = %v, want %v", cfg.Store.FilePath, want)
	}
}

func TestLoadConfigAbsolutePathsKept(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	abs := filepath.Join(t.TempDir(), "store.gob")
	t.Setenv("STORE_FILE_PATH", abs)
	t.Setenv("STORE_FORMAT", "gob")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Store.FilePath != abs {
		t.Errorf("Store.FilePath = %v, want %v", cfg.Store.FilePath, abs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{name: "defaults are valid", wantErr: false},
		{name: "zero delay", key: "SYNC_DELAY_SECONDS", value: "0", wantErr: true},
		{name: "negative delay", key: "SYNC_DELAY_SECONDS", value: "-5", wantErr: true},
		{name: "unknown currency", key: "SYNC_CURRENCY", value: "EUR", wantErr: true},
		{name: "unknown backend", key: "STORE_BACKEND", value: "s3", wantErr: true},
		{name: "unknown format", key: "STORE_FORMAT", value: "ron", wantErr: true},
		{name: "postgres backend", key: "STORE_BACKEND", value: "postgres", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_DIR", t.TempDir())
			if tt.key != "" {
				t.Setenv(tt.key, tt.value)
			}

			_, err := LoadConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsTypes(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty")
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "90s")

	if got := getEnvAsInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvAsInt() = %v, want 42", got)
	}
	if got := getEnvAsInt("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt() = %v, want 7", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 2.5 {
		t.Errorf("getEnvAsFloat() = %v, want 2.5", got)
	}
	if got := getEnvAsBool("TEST_BOOL", false); !got {
		t.Errorf("getEnvAsBool() = false, want true")
	}
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want 90s", got)
	}
}

func TestAccountRulesSelect(t *testing.T) {
	rules, err := ParseAccountRules([]byte(`
accounts:
  - name: Savings
    match:
      type: TFSA
      status: Active
  - name: Primary
    match:
      isPrimary: true
  - name: ""
    match:
      number: "555"
`))
	if err != nil {
		t.Fatalf("ParseAccountRules() error = %v", err)
	}

	tests := []struct {
		name      string
		account   models.Account
		wantAlias string
		wantOK    bool
	}{
		{
			name:      "first matching rule wins",
			account:   models.Account{Number: "1", Type: types.AccountTypeTFSA, Status: types.StatusActive, IsPrimary: true},
			wantAlias: "Savings",
			wantOK:    true,
		},
		{
			name:      "all fields of a rule must match",
			account:   models.Account{Number: "2", Type: types.AccountTypeTFSA, Status: types.StatusClosed, IsPrimary: true},
			wantAlias: "Primary",
			wantOK:    true,
		},
		{
			name:      "unnamed rule selects without alias",
			account:   models.Account{Number: "555", Type: types.AccountTypeMargin},
			wantAlias: "",
			wantOK:    true,
		},
		{
			name:    "no rule matches",
			account: models.Account{Number: "3", Type: types.AccountTypeMargin},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alias, ok := rules.Select(tt.account)
			if ok != tt.wantOK || alias != tt.wantAlias {
				t.Errorf("Select() = (%q, %v), want (%q, %v)", alias, ok, tt.wantAlias, tt.wantOK)
			}
		})
	}
}

func TestLoadAccountRulesMissingFileUsesDefault(t *testing.T) {
	rules, err := LoadAccountRules(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadAccountRules() error = %v", err)
	}

	alias, ok := rules.Select(models.Account{Number: "9", IsPrimary: true})
	if !ok || alias != "Primary" {
		t.Errorf("Select() = (%q, %v), want (\"Primary\", true)", alias, ok)
	}
	if _, ok := rules.Select(models.Account{Number: "9"}); ok {
		t.Errorf("Select() matched a non-primary account")
	}
}

func TestLoadAccountRulesRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	if err := os.WriteFile(path, []byte("accounts: []\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadAccountRules(path); err == nil {
		t.Errorf("LoadAccountRules() error = nil, want error")
	}
}
