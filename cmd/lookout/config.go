package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/lookout/internal/httpserver"
	"github.com/tinytelemetry/lookout/internal/model"
	"github.com/tinytelemetry/lookout/internal/placement"
	"github.com/tinytelemetry/lookout/internal/prefs"
	"github.com/tinytelemetry/lookout/internal/savedsession"
	"github.com/tinytelemetry/lookout/internal/socketrpc"
)

const (
	defaultUpdateInterval = model.DefaultUpdateInterval
	defaultViewBuffer     = model.DefaultViewBuffer
	defaultListenHost     = model.DefaultListenHost
	defaultAPIAddr        = httpserver.DefaultAddr
	defaultBackupInterval = 6 * time.Hour
	defaultBackupKeepLast = 24
	defaultQueryTimeout   = 5 * time.Second

	historyFileName = "history.duckdb"
	runtimeLogName  = "lookout.log"
	mainWindowName  = "MainWindow"
	backupDirName   = "backups"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	SaveDir         string        `mapstructure:"save-dir"`
	UpdateInterval  time.Duration `mapstructure:"update-interval"`
	ViewBuffer      int           `mapstructure:"view-buffer"`
	ListenHost      string        `mapstructure:"listen-host"`
	APIEnabled      bool          `mapstructure:"api-enabled"`
	APIAddr         string        `mapstructure:"api-addr"`
	SocketPath      string        `mapstructure:"socket-path"`
	HistoryEnabled  bool          `mapstructure:"history-enabled"`
	HistoryPath     string        `mapstructure:"history-path"`
	QueryTimeout    time.Duration `mapstructure:"query-timeout"`
	RestoreSessions bool          `mapstructure:"restore-sessions"`
	BackupEnabled   bool          `mapstructure:"backup-enabled"`
	BackupInterval  time.Duration `mapstructure:"backup-interval"`
	BackupDir       string        `mapstructure:"backup-dir"`
	BackupKeepLast  int           `mapstructure:"backup-keep-last"`
	ConfigPath      string        `mapstructure:"-"` // not from config file
}

// Files kept under the save location.
func (c appConfig) placementPath() string  { return placement.PathFor(c.SaveDir, mainWindowName) }
func (c appConfig) prefsPath() string      { return filepath.Join(c.SaveDir, prefs.FileName) }
func (c appConfig) sessionsPath() string   { return filepath.Join(c.SaveDir, savedsession.FileName) }
func (c appConfig) runtimeLogPath() string { return filepath.Join(c.SaveDir, runtimeLogName) }

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LOOKOUT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("save-dir", filepath.Join(home, ".local", "state", "lookout"))
	v.SetDefault("update-interval", defaultUpdateInterval)
	v.SetDefault("view-buffer", defaultViewBuffer)
	v.SetDefault("listen-host", defaultListenHost)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("history-enabled", true)
	v.SetDefault("history-path", "")
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("restore-sessions", false)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-dir", "")
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "lookout", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	cfg.SaveDir = expandHome(home, cfg.SaveDir)
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = filepath.Join(cfg.SaveDir, historyFileName)
	}
	cfg.HistoryPath = expandHome(home, cfg.HistoryPath)
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.SaveDir, backupDirName)
	}
	cfg.BackupDir = expandHome(home, cfg.BackupDir)
	cfg.SocketPath = expandHome(home, cfg.SocketPath)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if strings.TrimSpace(c.SaveDir) == "" {
		return fmt.Errorf("invalid save-dir: empty")
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("invalid update-interval: %s", c.UpdateInterval)
	}
	if c.ViewBuffer <= 0 {
		return fmt.Errorf("invalid view-buffer: %d", c.ViewBuffer)
	}
	if c.APIEnabled {
		if _, _, err := net.SplitHostPort(c.APIAddr); err != nil {
			return fmt.Errorf("invalid api-addr %q: %w", c.APIAddr, err)
		}
	}
	if c.BackupEnabled {
		if c.BackupInterval <= 0 {
			return fmt.Errorf("invalid backup-interval: %s", c.BackupInterval)
		}
		if c.BackupKeepLast < 0 {
			return fmt.Errorf("invalid backup-keep-last: %d", c.BackupKeepLast)
		}
		if !c.HistoryEnabled {
			return fmt.Errorf("backup-enabled requires history-enabled")
		}
	}
	return nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
