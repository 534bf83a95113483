package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/server"
	"github.com/teemow/inboxbrief/internal/tools/inbox_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

func newServeCmd() *cobra.Command {
	var metricsConfig MetricsConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Start an MCP (Model Context Protocol) server over stdio that exposes the
labeling and digest jobs as tools:

  inbox_label_run    classify and tag inbox threads
  inbox_digest_run   build and send the digest, or return it with dry_run
  inbox_classify     classify an ad-hoc subject and body
  inbox_config_show  show the resolved labels and parameters

With --metrics-enabled, Prometheus metrics and health probes are served on
--metrics-addr while the server runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loadMetricsEnv(cmd, &metricsConfig)
			return runServe(cmd.ErrOrStderr(), metricsConfig)
		},
	}

	cmd.Flags().BoolVar(&metricsConfig.Enabled, "metrics-enabled", false, "Serve metrics and health probes on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsConfig.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnv applies METRICS_ENABLED and METRICS_ADDR when the flags
// were not set explicitly.
func loadMetricsEnv(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "true" {
		config.Enabled = true
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(logOut io.Writer, metricsConfig MetricsConfig) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol, so nothing else may write to it.
	a, err := newApp(shutdownCtx, globals, logOut, io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	health := server.NewHealthChecker(a.sc)
	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled && a.provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			InstrumentationProvider: a.provider,
			Health:                  health,
			Logger:                  a.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if err := metricsServer.Listen(); err != nil {
			return fmt.Errorf("metrics server failed to start: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				a.logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				a.logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("inboxbrief", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := inbox_tools.RegisterInboxTools(mcpSrv, a.sc); err != nil {
		return fmt.Errorf("failed to register inbox tools: %w", err)
	}

	a.logger.Info("starting MCP server", "transport", "stdio", "account", a.sc.Account())
	err = runStdioServer(shutdownCtx, mcpSrv)
	health.SetReady(false)
	return err
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
