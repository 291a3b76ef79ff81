// Command claudebridge runs a local OpenAI-compatible HTTP adapter over the
// Claude Code CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/clawdbot/claudebridge/internal/config"
	"github.com/clawdbot/claudebridge/internal/logging"
	"github.com/clawdbot/claudebridge/internal/server"
)

// version is the adapter build version.
const version = "0.1.0"

// options holds CLI flag overrides applied on top of the resolved config.
type options struct {
	// Host overrides the bind address.
	Host string
	// Binary overrides the upstream CLI executable.
	Binary string
	// Timeout overrides the subprocess timeout.
	Timeout time.Duration
	// SessionFile overrides the session mapping file path.
	SessionFile string
	// LogFile enables a rotating file sink.
	LogFile string
	// Debug enables development logging and request logs.
	Debug bool
}

// main wires Cobra and executes the CLI.
func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "claudebridge",
		Short: "Local OpenAI-compatible HTTP adapter over the Claude Code CLI",
	}
	applyFlags(rootCmd.PersistentFlags(), opts)

	rootCmd.AddCommand(serveCommand(opts))
	rootCmd.AddCommand(statusCommand(opts))
	rootCmd.AddCommand(doctorCommand(opts))
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags defines the shared flag set.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.Host, "host", "", "Bind address (default 127.0.0.1)")
	flags.StringVar(&opts.Binary, "binary", "", "Claude CLI executable name or path")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "Subprocess timeout (default 5m)")
	flags.StringVar(&opts.SessionFile, "session-file", "", "Session mapping file path")
	flags.StringVar(&opts.LogFile, "log-file", "", "Write logs to a rotating file")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
}

// loadConfig resolves configuration and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Binary != "" {
		cfg.Binary = opts.Binary
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.SessionFile != "" {
		cfg.SessionFile = opts.SessionFile
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// serveCommand starts the adapter and blocks until SIGINT or SIGTERM.
func serveCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [port]",
		Short: "Start the adapter server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				port, err := strconv.Atoi(args[0])
				if err != nil || port < 1 || port > 65535 {
					return fmt.Errorf("invalid port %q: expected an integer between 1 and 65535", args[0])
				}
				cfg.Port = port
			}

			logger := logging.New(cfg.Debug, cfg.LogFile)
			defer func() { _ = logger.Sync() }()

			// A missing CLI is a startup failure, not a per-request one.
			if _, err := exec.LookPath(cfg.Binary); err != nil {
				return fmt.Errorf("claude CLI %q not found on PATH; install it with: npm install -g @anthropic-ai/claude-code", cfg.Binary)
			}

			srv, err := server.StartServer(cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "claudebridge listening on %s\n", srv.Addr())

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			sig := <-stop
			logger.Info("shutting down", zap.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.StopServer(ctx)
		},
	}
}

// statusCommand probes the local health endpoint.
func statusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the adapter is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			url := fmt.Sprintf("http://%s:%d/health", cfg.Host, cfg.Port)
			client := &http.Client{Timeout: 3 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("adapter not reachable at %s: %w", url, err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if err != nil {
				return fmt.Errorf("read health response: %w", err)
			}
			var payload struct {
				Status   string `json:"status"`
				Provider string `json:"provider"`
			}
			if err := json.Unmarshal(body, &payload); err != nil || payload.Status != "ok" {
				return fmt.Errorf("unexpected health response from %s: %s", url, strings.TrimSpace(string(body)))
			}
			fmt.Fprintf(os.Stdout, "OK: %s (%s)\n", url, payload.Provider)
			return nil
		},
	}
}

// doctorCommand checks that the upstream CLI is installed and reports its
// version. Authentication is not probed; auth errors surface on first use.
func doctorCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check claudebridge prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			path, err := exec.LookPath(cfg.Binary)
			if err != nil {
				return fmt.Errorf("claude CLI %q not found on PATH; install it with: npm install -g @anthropic-ai/claude-code", cfg.Binary)
			}
			fmt.Fprintf(os.Stdout, "OK: claude CLI at %s\n", path)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			out, err := exec.CommandContext(ctx, path, "--version").Output()
			if err != nil {
				return fmt.Errorf("claude CLI found but --version failed: %w", err)
			}
			fmt.Fprintf(os.Stdout, "OK: version %s\n", strings.TrimSpace(string(out)))
			return nil
		},
	}
}

// versionCommand prints the adapter version.
func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the claudebridge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
