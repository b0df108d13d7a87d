package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/lookout/internal/backup"
	"github.com/tinytelemetry/lookout/internal/cmdline"
	"github.com/tinytelemetry/lookout/internal/frame"
	"github.com/tinytelemetry/lookout/internal/history"
	"github.com/tinytelemetry/lookout/internal/httpserver"
	"github.com/tinytelemetry/lookout/internal/logregistry"
	"github.com/tinytelemetry/lookout/internal/metrics"
	"github.com/tinytelemetry/lookout/internal/placement"
	"github.com/tinytelemetry/lookout/internal/prefs"
	"github.com/tinytelemetry/lookout/internal/providers"
	"github.com/tinytelemetry/lookout/internal/provision"
	"github.com/tinytelemetry/lookout/internal/savedsession"
	"github.com/tinytelemetry/lookout/internal/session"
	"github.com/tinytelemetry/lookout/internal/socketrpc"
	"github.com/tinytelemetry/lookout/internal/tui"
)

// core is the provisioning graph shared by every control surface.
type core struct {
	logs         *logregistry.Registry
	catalog      *providers.Registry
	sessions     *session.Registry
	orchestrator *provision.Orchestrator
	history      *history.Store
	recorder     *savedsession.Recorder
	recording    *session.AsyncSubscription
}

// buildCore wires the registries, the frame factory and the orchestrator.
func buildCore(cfg appConfig) (*core, error) {
	c := &core{
		logs:     logregistry.New(),
		sessions: session.New(),
	}
	c.catalog = providers.NewDefaultRegistry(c.logs, providers.Config{ListenHost: cfg.ListenHost})
	frames := frame.NewFactory(c.logs, frame.Config{Buffer: cfg.ViewBuffer})

	opts := []provision.Option{provision.WithObserver(metrics.Observer{})}
	if cfg.HistoryEnabled {
		hist, err := history.Open(cfg.HistoryPath, cfg.QueryTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		c.history = hist
		opts = append(opts, provision.WithObserver(hist))
	}

	recorder, err := savedsession.NewRecorder(cfg.sessionsPath())
	if err != nil {
		c.close()
		return nil, fmt.Errorf("failed to load saved sessions: %w", err)
	}
	c.recorder = recorder
	c.recording = c.sessions.SubscribeAsync(func(ev session.Event) {
		if err := recorder.Record(ev.Pipeline); err != nil {
			log.Printf("savedsession: %v", err)
		}
	})

	c.orchestrator = provision.New(c.logs, c.catalog, frames, c.sessions, opts...)
	return c, nil
}

// historyOrNil keeps a nil *history.Store from becoming a non-nil interface.
func (c *core) historyOrNil() httpserver.History {
	if c.history == nil {
		return nil
	}
	return c.history
}

func (c *core) close() {
	if c.recording != nil {
		c.recording.Stop()
	}
	c.sessions.Close()
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			log.Printf("history: close: %v", err)
		}
	}
}

// provisionStartup restores saved sessions, then provisions the
// command-line source. It returns the error of the command-line source.
func (c *core) provisionStartup(restore bool, args []string) error {
	if restore {
		for _, desc := range c.recorder.Saved() {
			if _, err := c.orchestrator.Provision(desc); err != nil {
				log.Printf("restore: %q: %v", desc.Name, err)
			}
		}
	}
	if len(args) == 0 {
		return nil
	}
	desc, err := cmdline.Parse(args)
	if err != nil {
		return err
	}
	_, err = c.orchestrator.Provision(desc)
	return err
}

// runSession runs one lookout session until the user quits or a signal arrives.
func runSession(cfg appConfig, opts runOptions) error {
	if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		return fmt.Errorf("create save-dir: %w", err)
	}
	cleanupLogger := configureRuntimeLogger(cfg.runtimeLogPath())
	defer cleanupLogger()

	c, err := buildCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	var snapshotter backup.Snapshotter
	if c.history != nil {
		snapshotter = c.history
	}
	backupManager, err := backup.NewManager(snapshotter, backup.Config{
		Enabled:  cfg.BackupEnabled,
		Interval: cfg.BackupInterval,
		LocalDir: cfg.BackupDir,
		KeepLast: cfg.BackupKeepLast,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	if backupManager != nil {
		defer backupManager.Stop()
	}

	startErr := c.provisionStartup(opts.Restore || cfg.RestoreSessions, opts.Args)
	if startErr != nil {
		log.Printf("server: startup source: %v", startErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Headless {
		var pending *provision.ProvisionError
		if startErr != nil && !errors.As(startErr, &pending) {
			return errors.New(provision.UserMessage(startErr))
		}
		stopSurfaces := startSurfaces(cfg, c)
		defer stopSurfaces()
		printStartupBanner(cfg, c)
		if startErr != nil {
			fmt.Println("    " + provision.UserMessage(startErr))
		}
		<-ctx.Done()
		fmt.Println("\nShutting down gracefully...")
		return nil
	}

	return runShell(ctx, cfg, c, opts.Args, startErr)
}

// runShell runs the terminal shell. The program exists before any control
// surface starts, so no added pipeline is missed.
func runShell(ctx context.Context, cfg appConfig, c *core, args []string, startErr error) error {
	store, err := prefs.Open(cfg.prefsPath())
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}

	app := tui.New(shellOptions(cfg, c, store, args))
	shellCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(app, tea.WithAltScreen())

	stopForward := tui.Forward(c.sessions, p.Send)
	defer stopForward()

	if err := store.Watch(func(pr prefs.Preferences) {
		go p.Send(tui.PrefsChangedMsg{Show: pr.Show})
	}); err != nil {
		log.Printf("prefs: watch: %v", err)
	}

	stopSurfaces := startSurfaces(cfg, c)
	defer stopSurfaces()

	if startErr != nil {
		go p.Send(tui.ProvisionResultMsg{Err: startErr})
	}

	g, gctx := errgroup.WithContext(shellCtx)
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if err != nil {
			if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
				return fmt.Errorf("the shell requires a real terminal; use -headless")
			}
			return fmt.Errorf("error running shell: %w", err)
		}
		return nil
	})
	// A signal asks the shell to quit; quitting the shell ends this wait.
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})
	err = g.Wait()
	log.Printf("server: shell exited")
	return err
}

// shellOptions configures the shell. Starting without arguments opens the
// source wizard unless restored sessions already fill the tabs.
func shellOptions(cfg appConfig, c *core, store tui.PrefsStore, args []string) tui.Options {
	return tui.Options{
		Provisioner:    c.orchestrator,
		Catalog:        c.catalog,
		Initial:        c.sessions.Pipelines(),
		Prefs:          store,
		Placement:      &placement.Store{Path: cfg.placementPath()},
		UpdateInterval: cfg.UpdateInterval,
		StartInWizard:  cmdline.Mode(args) == cmdline.Interactive && c.sessions.Count() == 0,
	}
}

// startSurfaces starts the socket and HTTP control surfaces. Failures are
// logged; the session keeps running without them.
func startSurfaces(cfg appConfig, c *core) func() {
	var stops []func()

	sock := socketrpc.NewServer(cfg.SocketPath, c.orchestrator, c.sessions)
	if err := sock.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		stops = append(stops, sock.Stop)
	}

	if cfg.APIEnabled {
		api := httpserver.NewServer(cfg.APIAddr, c.orchestrator, c.sessions, c.catalog, c.historyOrNil())
		if err := api.Start(); err != nil {
			log.Printf("Warning: failed to start API server: %v", err)
		} else {
			stops = append(stops, func() {
				if err := api.Stop(); err != nil {
					log.Printf("httpserver: stop: %v", err)
				}
			})
		}
	}

	return func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}
}

// configureRuntimeLogger sends the standard logger to path. The shell owns
// the terminal, so logs reach stderr only when the file cannot be opened.
func configureRuntimeLogger(path string) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, c *core) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	cross := red.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╔═╗╔═╗╦╔═╔═╗╦ ╦╔╦╗
    ║  ║ ║║ ║╠╩╗║ ║║ ║ ║
    ╩═╝╚═╝╚═╝╩ ╩╚═╝╚═╝ ╩`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Sources"), "")
	pipelines := c.sessions.Pipelines()
	if len(pipelines) == 0 {
		lines = append(lines, fmt.Sprintf("    %s  %s", dot, dim.Render("none yet, add one through the API or the socket")))
	}
	for _, pl := range pipelines {
		mark := check
		if !pl.Complete() {
			mark = cross
		}
		lines = append(lines, fmt.Sprintf("    %s  %-30s %s", mark, pl.Name(),
			dim.Render(fmt.Sprintf("%d/%d providers", len(pl.Providers), pl.Requested))))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Control"), "")
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	if cfg.HistoryEnabled {
		lines = append(lines, fmt.Sprintf("    %s  History        %s", check, dim.Render(shortenPath(cfg.HistoryPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  History        %s", dot, dim.Render("disabled")))
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Sessions       %s", check, dim.Render(shortenPath(cfg.sessionsPath()))))
	lines = append(lines, fmt.Sprintf("    %s  Runtime Log    %s", check, dim.Render(shortenPath(cfg.runtimeLogPath()))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
