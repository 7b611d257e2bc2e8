// Openchatd is a local chat gateway between a desktop client and an
// Ollama daemon.
//
// It exposes a small HTTP API for one-shot chat, token streaming (SSE
// and WebSocket), model discovery, and conversation titling. All model
// inference happens in the locally running Ollama daemon; openchatd
// adds model resolution, context assembly, and session history on top.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]); the gateway also
// runs fine with no config file at all.
//
// Usage:
//
//	openchatd serve              Start the gateway
//	openchatd init [dir]         Write an example config file
//	openchatd ask <message>      Ask a single question (for testing)
//	openchatd version            Print version and build information
//	openchatd -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/openchat/openchatd/internal/api"
	"github.com/openchat/openchatd/internal/buildinfo"
	"github.com/openchat/openchatd/internal/chat"
	"github.com/openchat/openchatd/internal/config"
	"github.com/openchat/openchatd/internal/llm"
	"github.com/openchat/openchatd/internal/session"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the openchatd command. All OS-level
// dependencies are injected as parameters: ctx controls the lifetime of
// the process (cancelling it triggers graceful shutdown), stdout and
// stderr receive all program output, and args is os.Args[1:].
//
// Arguments are parsed by hand. The flag package relies on package-level
// globals (flag.CommandLine), which makes it impossible to call run()
// concurrently from tests; the argument surface here is small enough
// that manual parsing is clearer than bringing in a CLI framework.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: openchatd ask <message>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "openchatd - Local Chat Gateway")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: openchatd [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the gateway")
	fmt.Fprintln(w, "  init [dir]   Write an example config file (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./openchatd.yaml, ~/.config/openchatd/config.yaml, /etc/openchatd/config.yaml")
	fmt.Fprintln(w, "  (built-in defaults are used when no file exists)")
	return nil
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used and must exist. Otherwise the
// default locations are searched, and the built-in defaults are used
// when no file exists anywhere; the gateway is expected to run out of
// the box next to a stock Ollama install.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// buildService assembles the chat service from configuration: the model
// backend capability, the session history store, and the service itself.
// The returned close function releases the store.
func buildService(cfg *config.Config, logger *slog.Logger) (*chat.Service, func() error, error) {
	var backend llm.Capability
	if cfg.BackendEnabled() {
		backend = llm.Available(llm.NewOllamaClient(cfg.Models.OllamaURL))
	} else {
		backend = llm.Unavailable("model backend disabled in config")
	}

	var store session.Store
	if cfg.History.Path != "" {
		s, err := session.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open history database %s: %w", cfg.History.Path, err)
		}
		store = s
	} else {
		store = session.NewMemoryStore()
	}

	svc := chat.New(backend, store, logger, chat.Config{
		TitleBoostTimeout: cfg.Models.TitleBoostTimeout,
		DefaultModel:      cfg.Models.Default,
	})
	return svc, store.Close, nil
}

// runServe handles the "openchatd serve" subcommand. It is the primary
// operating mode: loads config, opens the history store, probes the
// model backend, starts the HTTP server, and blocks until a shutdown
// signal arrives or the server fails.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := config.NewLogger(stdout, slog.LevelInfo)
	logger.Info("starting openchatd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = config.NewLogger(stdout, level)
	}

	if cfgPath == "" {
		logger.Info("no config file found, using defaults")
	} else {
		logger.Info("config loaded", "path", cfgPath)
	}
	logger.Info("configuration",
		"port", cfg.Listen.Port,
		"model", cfg.Models.Default,
		"ollama_url", cfg.Models.OllamaURL,
		"backend_enabled", cfg.BackendEnabled(),
		"history_path", cfg.History.Path,
	)

	svc, closeStore, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// A failed probe is informational only. The daemon may come up
	// later; every request re-checks.
	if svc.BackendEnabled() && !svc.Online(ctx) {
		logger.Warn("ollama daemon unreachable at startup", "url", cfg.Models.OllamaURL)
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, svc, logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// everything below.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		return server.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("openchatd stopped")
	return nil
}

// runAsk handles the "openchatd ask <message>" subcommand. It boots a
// minimal service (in-memory history) and processes a single message,
// printing the response to stdout. Useful for smoke tests without
// starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	// Logs go to stdout in serve mode, but for a one-shot answer the
	// response is the output; keep logs out of the way.
	logger := config.NewLogger(io.Discard, slog.LevelInfo)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var backend llm.Capability
	if cfg.BackendEnabled() {
		backend = llm.Available(llm.NewOllamaClient(cfg.Models.OllamaURL))
	} else {
		backend = llm.Unavailable("model backend disabled in config")
	}

	svc := chat.New(backend, session.NewMemoryStore(), logger, chat.Config{
		DefaultModel: cfg.Models.Default,
	})

	response, err := svc.Respond(ctx, chat.Request{Message: strings.Join(args, " ")})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, response)
	return nil
}
