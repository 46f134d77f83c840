// Command codebridge executes guest code in an isolation runtime while
// answering the runtime's tool calls from a host-side registry.
//
// Configuration is layered: built-in defaults, an optional YAML config file
// (--config or CODEBRIDGE_CONFIG), CODEBRIDGE_* environment variables, and
// command line flags, each overriding the previous layer.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/codebridge/pkg/api"
	"github.com/rhuss/codebridge/pkg/config"
	"github.com/rhuss/codebridge/pkg/host"
	"github.com/rhuss/codebridge/pkg/sandbox"
)

// Version is the application version (set via ldflags).
var Version = "dev"

func main() {
	if err := Run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := kingpin.New("codebridge", "Code execution bridge to an isolation runtime.")
	app.DefaultEnvars()

	configPath := app.Flag("config", "Path to YAML config file.").String()
	debug := app.Flag("debug", "Enable debug logging.").Bool()

	runCmd := app.Command("run", "Execute guest code in the runtime.")
	codeFile := runCmd.Arg("file", "Guest code file, or - for stdin.").Required().String()
	runDeps := runCmd.Flag("deps", "Dependencies to stage in the runtime.").Strings()
	runMode := runCmd.Flag("mode", "Runtime mode: stdio or streamable-http.").String()
	runPort := runCmd.Flag("port", "Runtime port for streamable-http mode.").Int()
	runCommand := runCmd.Flag("runtime", "Runtime command to spawn.").String()
	runTimeout := runCmd.Flag("timeout", "Per-execution timeout.").Duration()

	toolsCmd := app.Command("tools", "List the tools the host exposes to guest code.")

	versionCmd := app.Command("version", "Show version.")

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, *runDeps, *runMode, *runPort, *runCommand, *runTimeout)

	switch cmdName {
	case runCmd.FullCommand():
		code, err := readCode(*codeFile, stdin)
		if err != nil {
			return err
		}
		return executeRun(ctx, cfg, logger, code, stdout, stderr)

	case toolsCmd.FullCommand():
		return listTools(ctx, stdout)

	case versionCmd.FullCommand():
		fmt.Fprintf(stdout, "codebridge %s\n", Version)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmdName)
	}
}

func applyFlags(cfg *config.Config, deps []string, mode string, port int, command string, timeout time.Duration) {
	if len(deps) > 0 {
		cfg.Runtime.Deps = deps
	}
	if mode != "" {
		cfg.Runtime.Mode = mode
	}
	if port != 0 {
		cfg.Runtime.Port = port
	}
	if command != "" {
		cfg.Runtime.Command = command
	}
	if timeout != 0 {
		cfg.Execution.Timeout = timeout
	}
}

func readCode(path string, stdin io.Reader) (string, error) {
	// kingpin tokenizes a bare "-" argument as an empty string.
	if path == "-" || path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// executeRun connects to the runtime, executes the code, and renders the
// resulting envelope. The metrics endpoint and signal handling run as
// concurrent actors for the duration of the execution.
func executeRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, code string, stdout, stderr io.Writer) error {
	reg := builtinRegistry()
	defer reg.Close()

	rc := host.NewRunContext(uuid.NewString(), "codebridge-cli", nil)
	sess := sandbox.NewSession(sandbox.SessionConfig{
		RunTool:    cfg.Execution.RunTool,
		Registry:   reg,
		RunContext: rc,
	})

	var env *api.Envelope
	var group run.Group

	// Signal handling.
	{
		runCtx, cancel := context.WithCancel(ctx)
		group.Add(func() error {
			sigC := make(chan os.Signal, 1)
			signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigC:
				return fmt.Errorf("received signal %s", sig)
			case <-runCtx.Done():
				return nil
			}
		}, func(error) {
			cancel()
		})
	}

	// Metrics endpoint.
	if cfg.Observability.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Observability.Metrics.Path, promhttp.Handler())
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Observability.Metrics.Port),
			Handler: mux,
		}
		group.Add(func() error {
			logger.Debug("metrics listening", "port", cfg.Observability.Metrics.Port)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		})
	}

	// Execution. A configured REST URL selects the /execute surface; the
	// REST path carries no tool bridge, so the registry stays idle there.
	{
		execCtx, cancel := context.WithCancel(ctx)
		group.Add(func() error {
			if cfg.Runtime.RestURL != "" {
				client := sandbox.NewClient(cfg.Runtime.RestURL, int(cfg.Execution.Timeout.Seconds()), cfg.Runtime.Deps)
				if cfg.Runtime.RestToken != "" {
					client = client.WithAuthToken(cfg.Runtime.RestToken)
				}
				var err error
				env, err = client.Run(execCtx, code)
				return err
			}

			transport, err := sandbox.RuntimeConfig{
				Command:   cfg.Runtime.Command,
				ExtraArgs: cfg.Runtime.ExtraArgs,
				Mode:      cfg.Runtime.Mode,
				Port:      cfg.Runtime.Port,
				Deps:      cfg.Runtime.Deps,
			}.Transport(execCtx)
			if err != nil {
				return err
			}
			if err := sess.Connect(execCtx, transport); err != nil {
				return err
			}
			defer sess.Close()

			env, err = sess.Run(execCtx, code)
			return err
		}, func(error) {
			cancel()
		})
	}

	if err := group.Run(); err != nil {
		return err
	}
	return renderEnvelope(env, stdout, stderr)
}

// renderEnvelope prints captured output and the result, mapping failure
// statuses to process exit codes.
func renderEnvelope(env *api.Envelope, stdout, stderr io.Writer) error {
	if env == nil {
		return fmt.Errorf("no envelope received")
	}
	for _, line := range env.Output {
		fmt.Fprintln(stdout, line)
	}
	switch env.Status {
	case api.StatusSuccess:
		if len(env.ReturnValue) > 0 {
			fmt.Fprintln(stdout, string(env.ReturnValue))
		}
		return nil
	case api.StatusInstallError:
		fmt.Fprintln(stderr, env.Error)
		return fmt.Errorf("dependency installation failed")
	default:
		fmt.Fprintln(stderr, env.Error)
		return fmt.Errorf("guest code failed")
	}
}

func listTools(ctx context.Context, stdout io.Writer) error {
	reg := builtinRegistry()
	defer reg.Close()

	tools, err := reg.Tools(ctx, host.NewRunContext(uuid.NewString(), "codebridge-cli", nil))
	if err != nil {
		return err
	}
	for _, tool := range tools {
		props := tool.Parameters.PropertyNames()
		fmt.Fprintf(stdout, "%s(%s)\n", tool.Name, strings.Join(props, ", "))
	}
	return nil
}
