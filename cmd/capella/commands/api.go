package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/capellaquant/capella/internal/api"
	"github.com/capellaquant/capella/internal/api/handlers"
)

// apiCmd starts the REST API server
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                 - Health check
  GET  /api/strategy           - Active strategy config and hash
  GET  /api/strategy/universe  - Universe selection for a date
  POST /api/backtest           - Run a backtest
  GET  /api/backtest/stream    - Run a backtest, stream the equity curve

Example:
  go run ./cmd/capella api
  go run ./cmd/capella api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	strategyHandler := handlers.NewStrategyHandler(a.store, a.strategy, a.configHash, a.log)
	backtestHandler := handlers.NewBacktestHandler(a.store, a.strategy, a.configHash, a.log)

	router := api.NewRouter(strategyHandler, backtestHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
