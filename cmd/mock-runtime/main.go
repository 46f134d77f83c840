// Command mock-runtime runs the isolation runtime as an MCP server. It is a
// stand-in for a real sandboxed interpreter: guest code is evaluated by the
// built-in interpreter, and tool calls travel back to the connecting client
// over the elicitation channel.
//
// The serving mode is a positional argument:
//
//	mock-runtime stdio
//	mock-runtime streamable-http --port=9000
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/codebridge/pkg/mockruntime"
	"github.com/rhuss/codebridge/pkg/sandbox"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("mock-runtime failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := kingpin.New("mock-runtime", "Mock isolation runtime serving the run_code tool over MCP.")
	mode := app.Arg("mode", "Serving mode: stdio or streamable-http.").Required().Enum(sandbox.ModeStdio, sandbox.ModeStreamableHTTP)
	deps := app.Flag("deps", "Comma-separated dependencies to stage before guest code runs.").String()
	port := app.Flag("port", "Listen port for streamable-http mode.").Int()
	timeout := app.Flag("timeout", "Per-execution timeout.").Default("30s").Duration()
	debug := app.Flag("debug", "Enable debug logging.").Bool()

	if _, err := app.Parse(args[1:]); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	// stdio mode owns stdout for the protocol, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	server := mockruntime.NewServer(mockruntime.Config{
		Deps:    splitDeps(*deps),
		Timeout: *timeout,
		Logger:  logger,
	})

	switch *mode {
	case sandbox.ModeStdio:
		return server.Run(context.Background(), &mcp.StdioTransport{})

	case sandbox.ModeStreamableHTTP:
		if *port == 0 {
			return fmt.Errorf("--port is required for %s mode", sandbox.ModeStreamableHTTP)
		}
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return server
		}, nil)

		mux := http.NewServeMux()
		mux.Handle("/mcp", handler)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok\n"))
		})

		logger.Info("mock-runtime listening", "port", *port)
		srv := &http.Server{
			Addr:        fmt.Sprintf(":%d", *port),
			Handler:     mux,
			ReadTimeout: 30 * time.Second,
		}
		return srv.ListenAndServe()

	default:
		return fmt.Errorf("unsupported mode %q", *mode)
	}
}

func splitDeps(v string) []string {
	var out []string
	for _, dep := range strings.Split(v, ",") {
		if dep = strings.TrimSpace(dep); dep != "" {
			out = append(out, dep)
		}
	}
	return out
}
