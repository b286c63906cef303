package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/liushooter/jito-example/service/config"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatalf("error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "jito",
		Usage: "Send a signed SOL transfer through an authenticated Jito RPC endpoint",
		Description: `Generates an ephemeral payer and recipient, fetches a recent blockhash from the
Jito endpoint, signs a single System Program transfer and submits it with
sendRawTransaction. Every request carries the x-jito-auth header.

Running without a subcommand is the same as "send". The payer is brand new and
unfunded, so a real node will reject the transfer during preflight.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Action:  sendAction,
		Commands: []*cli.Command{
			sendCommand(),
			blockhashCommand(),
			rpcCommands(),
			versionCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rpc-url",
				Usage: "Jito RPC endpoint URL (env JITO_RPC_URL)",
			},
			&cli.StringFlag{
				Name:  "auth-token",
				Usage: "Value for the x-jito-auth header (env JITO_AUTH_TOKEN)",
			},
			&cli.Uint64Flag{
				Name:  "lamports",
				Usage: "Transfer amount in lamports (env JITO_TRANSFER_LAMPORTS)",
			},
			&cli.BoolFlag{
				Name:  "skip-preflight",
				Usage: "Ask the node to skip preflight simulation (env JITO_SKIP_PREFLIGHT)",
			},
			&cli.DurationFlag{
				Name:  "request-timeout",
				Usage: "HTTP timeout per RPC call, 0 for none (env JITO_REQUEST_TIMEOUT)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (env LOG_LEVEL)",
			},
		},
	}
}

// loadConfig reads the environment and applies any flags set on the command
// line on top, then validates. Nothing touches the network before this passes.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	if c.IsSet("rpc-url") {
		cfg.RPCURL = c.String("rpc-url")
	}
	if c.IsSet("auth-token") {
		cfg.AuthToken = c.String("auth-token")
	}
	if c.IsSet("lamports") {
		cfg.TransferLamports = c.Uint64("lamports")
	}
	if c.IsSet("skip-preflight") {
		cfg.SkipPreflight = c.Bool("skip-preflight")
	}
	if c.IsSet("request-timeout") {
		cfg.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			fmt.Fprintf(w, "jito CLI\n")
			fmt.Fprintf(w, "  Version: %s\n", version)
			fmt.Fprintf(w, "  Commit:  %s\n", commit)
			fmt.Fprintf(w, "  Built:   %s\n", date)
			return nil
		},
	}
}
