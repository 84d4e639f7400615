package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-viewer/internal/config"
	"github.com/joeblew999/plat-viewer/internal/host"
	"github.com/joeblew999/plat-viewer/internal/journal"
	"github.com/joeblew999/plat-viewer/internal/server"
	"github.com/joeblew999/plat-viewer/internal/store"
)

// Options defines all CLI flags and env vars for the viewer server.
// Flags: --host, --port, --data-dir, --config, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CONFIG, SERVICE_LOG_LEVEL
type Options struct {
	Host     string `doc:"Host to bind to" default:"0.0.0.0"`
	Port     int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir  string `doc:"Directory for the layer catalog and the action journal" default:".data"`
	Config   string `doc:"Viewer configuration file (TOML)" short:"c"`
	LogLevel string `doc:"Log level (debug, info, warn, error)" default:"info"`
}

func newLogger(opts *Options) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(opts *Options) *config.Config {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		fatal("Error loading config", err)
	}
	return cfg
}

func newServer(opts *Options, logger *slog.Logger) *server.Server {
	srv, err := server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		Viewer:  loadConfig(opts),
		Logger:  logger,
	})
	if err != nil {
		fatal("Error creating server", err)
	}
	return srv
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		slog.SetDefault(logger)

		var httpServer *http.Server

		hooks.OnStart(func() {
			srv := newServer(opts, logger)
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-viewer server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("server error", "err", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer != nil {
				httpServer.Shutdown(context.Background())
			}
		})
	})

	cli.Root().Use = "viewer"
	cli.Root().Short = "Map-client coordination service for the shoreline and zone viewers"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			// The document does not depend on stored data.
			opts.DataDir = ""
			srv := newServer(opts, slog.New(slog.DiscardHandler))
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// replay subcommand: print a journaled session or the state it rebuilds
	replayCmd := &cobra.Command{
		Use:   "replay [session-id]",
		Short: "Print the journal of a session, or list journaled sessions",
		Args:  cobra.MaximumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			j, err := journal.Open(journal.Config{DataDir: opts.DataDir, DBName: "viewer"})
			if err != nil {
				fatal("Error opening journal", err)
			}
			defer j.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if len(args) == 0 {
				ids, err := j.Sessions(ctx)
				if err != nil {
					fatal("Error listing sessions", err)
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return
			}

			asState, _ := cmd.Flags().GetBool("state")
			var out any
			if asState {
				out, err = rebuild(ctx, j, args[0], loadConfig(opts))
			} else {
				out, err = j.Entries(ctx, args[0], 0)
			}
			if err != nil {
				fatal("Error reading journal", err)
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				fatal("Error marshaling output", err)
			}
			fmt.Println(string(b))
		}),
	}
	replayCmd.Flags().BoolP("state", "s", false, "Fold the journal and print the resulting state")
	cli.Root().AddCommand(replayCmd)

	cli.Run()
}

// rebuild folds the journaled actions of a session over a fresh state built
// from the viewer configuration.
func rebuild(ctx context.Context, j *journal.Journal, id string, cfg *config.Config) (store.State, error) {
	actions, skipped, err := j.Actions(ctx, id)
	if err != nil {
		return store.State{}, err
	}
	if skipped > 0 {
		slog.Warn("skipped unknown actions", "session", id, "count", skipped)
	}
	st := store.New(host.Options{
		Projection:   cfg.Projection,
		Locale:       cfg.Locale,
		GeoServerURL: cfg.GeoServerURL,
	})
	for _, a := range actions {
		st = store.Reduce(st, a)
	}
	return st, nil
}
