package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tinytelemetry/lookout/internal/cmdline"
	"github.com/tinytelemetry/lookout/internal/provision"
	"github.com/tinytelemetry/lookout/internal/socketrpc"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// GetVersionInfo returns the current version and commit information.
func GetVersionInfo() (string, string) {
	return version, commit
}

// runOptions are the per-invocation choices made on the command line.
type runOptions struct {
	Headless bool
	Restore  bool
	Args     []string
}

func main() {
	var configPath string
	var showVersion bool
	var opts runOptions

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/lookout/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&opts.Headless, "headless", false, "run without the terminal shell")
	flag.BoolVar(&opts.Restore, "restore", false, "re-provision saved sessions on startup")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: lookout [flags] [%s]\n\n", provision.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("Lookout - Network Log Viewer\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	opts.Args = flag.Args()
	if cmdline.Mode(opts.Args) == cmdline.Invalid {
		_, err := cmdline.Parse(opts.Args)
		fmt.Fprintln(os.Stderr, provision.UserMessage(err))
		os.Exit(2)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cmdline.Mode(opts.Args) == cmdline.CommandLine {
		attached, err := attach(cfg.SocketPath, opts.Args, os.Stdout)
		if attached {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := runSession(cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// attach hands a command-line source to an already running lookout. It
// reports false when no instance answers on socketPath.
func attach(socketPath string, args []string, out io.Writer) (bool, error) {
	client, err := socketrpc.Dial(socketPath)
	if err != nil {
		return false, nil
	}
	defer client.Close()

	res, err := client.ProvisionCommandLine(args)
	if err != nil {
		var rpcErr *socketrpc.RPCError
		if errors.As(err, &rpcErr) {
			return true, errors.New(rpcErr.Message)
		}
		return true, fmt.Errorf("attach to %s: %w", socketPath, err)
	}
	if res.Error != "" {
		fmt.Fprintf(out, "%s: %s\n", res.Name, res.Error)
		return true, nil
	}
	fmt.Fprintf(out, "%s: %d of %d providers started in the running session\n", res.Name, res.Started, res.Requested)
	return true, nil
}
