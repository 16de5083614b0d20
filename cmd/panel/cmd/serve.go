package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/panel/internal/api"
	"github.com/hugo-lorenzo-mato/panel/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and A2A server",
	Long: `Start the HTTP server.

The server exposes a REST API for analyses and stored reports, an SSE stream
of engine events, and an A2A JSON-RPC endpoint at /rpc so other agents can
use the whole panel as a single specialist. When roles.file is configured,
edits to it apply to the next analysis.

Examples:
  # Start with defaults (127.0.0.1:8080)
  panel serve

  # Listen on all interfaces and advertise a public URL
  panel serve --addr 0.0.0.0:8080 --public-url https://panel.example.org`,
	RunE: runServe,
}

var (
	serveAddr      string
	servePublicURL string
	serveNoStore   bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (default from server.addr)")
	serveCmd.Flags().StringVar(&servePublicURL, "public-url", "", "base URL advertised in the agent card")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "do not persist analyses")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	deps, err := newEngine(cfg, logger, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	shutdown, err := config.Duration(cfg.Server.ShutdownTimeout)
	if err != nil {
		return err
	}

	opts := []api.ServerOption{
		api.WithLogger(logger),
		api.WithDefaults(deps.Workflow),
		api.WithMetrics(deps.Metrics),
		api.WithEventBus(deps.Bus),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
		api.WithVersion(appVersion),
	}
	if shutdown > 0 {
		opts = append(opts, api.WithShutdownTimeout(shutdown))
	}
	publicURL := cfg.Server.PublicURL
	if servePublicURL != "" {
		publicURL = servePublicURL
	}
	if publicURL != "" {
		opts = append(opts, api.WithPublicURL(publicURL))
	}
	if !serveNoStore {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, api.WithStore(st))
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("panel server ready",
		"addr", addr,
		"oracle", deps.Oracle.Name(),
		"roles", len(deps.Catalog().Names()),
		"store", !serveNoStore,
	)
	return api.NewServer(deps.Engine, opts...).ListenAndServe(ctx, addr)
}
