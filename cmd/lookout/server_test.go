package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/lookout/internal/provision"
	"github.com/tinytelemetry/lookout/internal/savedsession"
	"github.com/tinytelemetry/lookout/internal/socketrpc"
	"github.com/tinytelemetry/lookout/internal/tui"
)

func testConfig(t *testing.T) appConfig {
	t.Helper()
	dir := t.TempDir()
	return appConfig{
		SaveDir:        dir,
		UpdateInterval: defaultUpdateInterval,
		ViewBuffer:     100,
		ListenHost:     "127.0.0.1",
		SocketPath:     filepath.Join(dir, "lookout.sock"),
		HistoryEnabled: true,
		HistoryPath:    filepath.Join(dir, historyFileName),
		QueryTimeout:   defaultQueryTimeout,
	}
}

func newTestCore(t *testing.T, cfg appConfig) *core {
	t.Helper()
	c, err := buildCore(cfg)
	if err != nil {
		t.Fatalf("buildCore: %v", err)
	}
	t.Cleanup(c.close)
	return c
}

func TestProvisionStartup_CommandLine(t *testing.T) {
	cfg := testConfig(t)
	c := newTestCore(t, cfg)

	if err := c.provisionStartup(false, []string{"nlog", "udp", "0"}); err != nil {
		t.Fatalf("provisionStartup: %v", err)
	}
	p, idx := c.sessions.Selected()
	if p == nil || idx != 0 {
		t.Fatalf("selected = %v, %d; want the new pipeline", p, idx)
	}
	if got, want := p.Name(), "nlog listening on udp port 0"; got != want {
		t.Fatalf("name = %q, want %q", got, want)
	}

	n, err := c.history.Count(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("history count = %d, %v; want 1", n, err)
	}

	c.recording.Flush()
	saved, err := savedsession.Load(cfg.sessionsPath())
	if err != nil {
		t.Fatalf("load saved sessions: %v", err)
	}
	if len(saved) != 1 || saved[0].Name != p.Name() {
		t.Fatalf("saved sessions = %+v", saved)
	}
}

func TestProvisionStartup_RejectsLog4NetTCP(t *testing.T) {
	c := newTestCore(t, testConfig(t))

	err := c.provisionStartup(false, []string{"log4net", "tcp", "9000"})
	var unsupported *provision.UnsupportedCombinationError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want UnsupportedCombinationError", err)
	}
	if got := c.sessions.Count(); got != 0 {
		t.Fatalf("sessions = %d, want 0", got)
	}
	n, _ := c.history.Count(context.Background())
	if n != 1 {
		t.Fatalf("history count = %d, want the rejection recorded", n)
	}
}

func TestProvisionStartup_Restore(t *testing.T) {
	cfg := testConfig(t)
	descs := []provision.WizardDescription{
		{Name: "api", Views: []string{"messages", "counts"}, Providers: []provision.ProviderSpec{
			{Type: provision.ProviderNLogViewer, Settings: provision.ProviderSettings{Port: 0, UDP: true}},
		}},
		{Name: "worker", Providers: []provision.ProviderSpec{
			{Type: provision.ProviderLog4Net, Settings: provision.ProviderSettings{Port: 0, UDP: true}},
		}},
	}
	if err := savedsession.Save(cfg.sessionsPath(), descs); err != nil {
		t.Fatalf("save: %v", err)
	}
	c := newTestCore(t, cfg)

	if err := c.provisionStartup(true, nil); err != nil {
		t.Fatalf("provisionStartup: %v", err)
	}
	var names []string
	for _, p := range c.sessions.Pipelines() {
		names = append(names, p.Name())
	}
	if strings.Join(names, ",") != "api,worker" {
		t.Fatalf("restored = %v, want [api worker]", names)
	}
	if p, _ := c.sessions.Selected(); p.Name() != "worker" {
		t.Fatalf("selected = %q, want the last restored", p.Name())
	}

	c.recording.Flush()
	saved, _ := savedsession.Load(cfg.sessionsPath())
	if len(saved) != 2 {
		t.Fatalf("saved sessions = %d, want 2 (no duplicates)", len(saved))
	}
}

func TestShellOptions_StartInWizard(t *testing.T) {
	cases := []struct {
		name    string
		restore bool
		args    []string
		want    bool
	}{
		{name: "no arguments", want: true},
		{name: "command line", args: []string{"nlog", "udp", "0"}, want: false},
		{name: "invalid arguments", args: []string{"nlog"}, want: false},
		{name: "restored sessions", restore: true, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tc.restore {
				descs := []provision.WizardDescription{{Name: "api", Providers: []provision.ProviderSpec{
					{Type: provision.ProviderNLogViewer, Settings: provision.ProviderSettings{Port: 0, UDP: true}},
				}}}
				if err := savedsession.Save(cfg.sessionsPath(), descs); err != nil {
					t.Fatalf("save: %v", err)
				}
			}
			c := newTestCore(t, cfg)
			_ = c.provisionStartup(tc.restore, tc.args)

			opts := shellOptions(cfg, c, nil, tc.args)
			if opts.StartInWizard != tc.want {
				t.Fatalf("StartInWizard = %v, want %v", opts.StartInWizard, tc.want)
			}
			if got := tui.New(opts).ActivePage(); (got == tui.PageWizard) != tc.want {
				t.Fatalf("active page = %q", got)
			}
		})
	}
}

func TestAttach(t *testing.T) {
	cfg := testConfig(t)
	c := newTestCore(t, cfg)

	var out bytes.Buffer
	attached, err := attach(cfg.SocketPath, []string{"nlog", "udp", "0"}, &out)
	if attached || err != nil {
		t.Fatalf("attach without a server = %v, %v; want false, nil", attached, err)
	}

	srv := socketrpc.NewServer(cfg.SocketPath, c.orchestrator, c.sessions)
	if err := srv.Start(); err != nil {
		t.Fatalf("start socket server: %v", err)
	}
	defer srv.Stop()

	attached, err = attach(cfg.SocketPath, []string{"nlog", "udp", "0"}, &out)
	if !attached || err != nil {
		t.Fatalf("attach = %v, %v; want true, nil", attached, err)
	}
	if want := "nlog listening on udp port 0: 1 of 1 providers started"; !strings.Contains(out.String(), want) {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
	if got := c.sessions.Count(); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}

	attached, err = attach(cfg.SocketPath, []string{"log4net", "tcp", "9000"}, &out)
	if !attached {
		t.Fatal("rejected source was not handled by the running session")
	}
	if err == nil || err.Error() != "Log4net does not support TCP" {
		t.Fatalf("err = %v, want %q", err, "Log4net does not support TCP")
	}
}

func TestConfigureRuntimeLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", runtimeLogName)
	cleanup := configureRuntimeLogger(path)
	defer cleanup()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("runtime log not created: %v", err)
	}
}
