package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Settings(t *testing.T) {
	resetLookoutEnv(t)

	tests := []struct {
		name         string
		configYAML   string
		wantErr      bool
		errSubstring string
		assert       func(t *testing.T, cfg appConfig)
	}{
		{
			name:       "defaults",
			configYAML: `view-buffer: 1000`,
			assert: func(t *testing.T, cfg appConfig) {
				t.Helper()
				if !cfg.APIEnabled || cfg.APIAddr != defaultAPIAddr {
					t.Fatalf("api = %v %q, want enabled on %q", cfg.APIEnabled, cfg.APIAddr, defaultAPIAddr)
				}
				if cfg.UpdateInterval != defaultUpdateInterval {
					t.Fatalf("update-interval = %s, want %s", cfg.UpdateInterval, defaultUpdateInterval)
				}
				if cfg.ListenHost != defaultListenHost {
					t.Fatalf("listen-host = %q, want %q", cfg.ListenHost, defaultListenHost)
				}
				if cfg.BackupEnabled || cfg.RestoreSessions {
					t.Fatal("backup and restore should be off by default")
				}
				if filepath.Base(cfg.HistoryPath) != historyFileName {
					t.Fatalf("history-path = %q, want it under save-dir", cfg.HistoryPath)
				}
				if filepath.Dir(cfg.HistoryPath) != cfg.SaveDir {
					t.Fatalf("history dir = %q, want %q", filepath.Dir(cfg.HistoryPath), cfg.SaveDir)
				}
				if cfg.ConfigPath == "" {
					t.Fatal("config path not recorded")
				}
			},
		},
		{
			name: "explicit values",
			configYAML: `
save-dir: /tmp/lookout-test
update-interval: 2s
view-buffer: 50
listen-host: 127.0.0.1
api-addr: 127.0.0.1:4900
history-path: /tmp/other/history.duckdb
restore-sessions: true
`,
			assert: func(t *testing.T, cfg appConfig) {
				t.Helper()
				if cfg.SaveDir != "/tmp/lookout-test" {
					t.Fatalf("save-dir = %q", cfg.SaveDir)
				}
				if cfg.UpdateInterval != 2*time.Second || cfg.ViewBuffer != 50 {
					t.Fatalf("update-interval = %s, view-buffer = %d", cfg.UpdateInterval, cfg.ViewBuffer)
				}
				if cfg.HistoryPath != "/tmp/other/history.duckdb" {
					t.Fatalf("history-path = %q", cfg.HistoryPath)
				}
				if cfg.placementPath() != "/tmp/lookout-test/MainWindow.json" {
					t.Fatalf("placement path = %q", cfg.placementPath())
				}
				if cfg.sessionsPath() != "/tmp/lookout-test/sessions.yml" {
					t.Fatalf("sessions path = %q", cfg.sessionsPath())
				}
				if !cfg.RestoreSessions {
					t.Fatal("restore-sessions not applied")
				}
			},
		},
		{
			name: "backup dir defaults under save dir",
			configYAML: `
save-dir: /tmp/lookout-test
backup-enabled: true
`,
			assert: func(t *testing.T, cfg appConfig) {
				t.Helper()
				if cfg.BackupDir != "/tmp/lookout-test/backups" {
					t.Fatalf("backup-dir = %q", cfg.BackupDir)
				}
				if cfg.BackupKeepLast != defaultBackupKeepLast {
					t.Fatalf("backup-keep-last = %d", cfg.BackupKeepLast)
				}
			},
		},
		{
			name:         "invalid api address rejected",
			configYAML:   `api-addr: localhost`,
			wantErr:      true,
			errSubstring: "invalid api-addr",
		},
		{
			name: "disabled api skips address check",
			configYAML: `
api-enabled: false
api-addr: localhost
`,
		},
		{
			name:         "invalid view buffer rejected",
			configYAML:   `view-buffer: 0`,
			wantErr:      true,
			errSubstring: "invalid view-buffer",
		},
		{
			name:         "invalid update interval rejected",
			configYAML:   `update-interval: 0s`,
			wantErr:      true,
			errSubstring: "invalid update-interval",
		},
		{
			name: "invalid backup interval rejected",
			configYAML: `
backup-enabled: true
backup-interval: 0s
`,
			wantErr:      true,
			errSubstring: "invalid backup-interval",
		},
		{
			name: "backup requires history",
			configYAML: `
backup-enabled: true
history-enabled: false
`,
			wantErr:      true,
			errSubstring: "requires history-enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeTempConfig(t, tt.configYAML)
			cfg, err := loadConfig(configPath)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errSubstring != "" && !strings.Contains(err.Error(), tt.errSubstring) {
					t.Fatalf("error = %q, want substring %q", err.Error(), tt.errSubstring)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig returned error: %v", err)
			}
			if tt.assert != nil {
				tt.assert(t, cfg)
			}
		})
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	resetLookoutEnv(t)
	t.Setenv("LOOKOUT_VIEW_BUFFER", "77")
	t.Setenv("LOOKOUT_API_ENABLED", "false")

	cfg, err := loadConfig(writeTempConfig(t, `view-buffer: 10`))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ViewBuffer != 77 {
		t.Fatalf("view-buffer = %d, want 77", cfg.ViewBuffer)
	}
	if cfg.APIEnabled {
		t.Fatal("api-enabled = true, want false from env")
	}
}

func TestLoadConfig_MissingFileTolerated(t *testing.T) {
	resetLookoutEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ConfigPath != "" {
		t.Fatalf("config path = %q, want empty for a missing file", cfg.ConfigPath)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func resetLookoutEnv(t *testing.T) {
	t.Helper()

	original := make(map[string]string)
	existed := make(map[string]bool)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "LOOKOUT_") {
			continue
		}
		original[key] = value
		existed[key] = true
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key := range existed {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("cleanup unset %s: %v", key, err)
			}
		}
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Fatalf("cleanup restore %s: %v", key, err)
			}
		}
	})
}
