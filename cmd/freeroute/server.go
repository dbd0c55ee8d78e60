package freeroute

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	gateway "github.com/tc3oliver/FreeRoute-RAG-Infra-sub000"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/server"
)

const shutdownTimeout = 30 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the graph gateway HTTP server",
	Long: `Start the HTTP server exposing graph extraction, probing, upsert and
read-only query endpoints.

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 9000, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "release", "Server mode (debug, release, test)")
	serverCmd.Flags().String("db-uri", "", "Neo4j URI (empty keeps the configured one)")
	serverCmd.Flags().String("telemetry-parquet-path", "", "Directory receiving error records as Parquet")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
	if cmd.Flags().Changed("db-uri") {
		cfg.Database.URI, _ = cmd.Flags().GetString("db-uri")
	}
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}

	log, flushTelemetry := newLogger(cfg)
	defer flushTelemetry()

	ctx := context.Background()
	gw, err := gateway.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}
	log.Info("gateway ready", "schema_hash", gw.Info().SchemaHash, "providers", cfg.Graph.ProviderChain)

	srv := server.New(cfg, gw, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		_ = gw.Close(ctx)
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if err := gw.Close(shutdownCtx); err != nil {
			log.Warn("gateway close failed", "error", err)
		}
		log.Info("server stopped gracefully")
		return nil
	}
}
