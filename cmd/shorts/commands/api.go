package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/shorttracker/internal/api"
	"github.com/wonny/shorttracker/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `읽기 전용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                    - Health check
  GET  /api/shorts/report         - 최신 리포트 전체
  GET  /api/shorts/securities     - 종목별 지표 (?ticker=)
  GET  /api/shorts/funds          - 펀드별 지표 (?ticker=&fund=)
  GET  /api/shorts/flows          - 포지션 시계열 (?fund=&isin=)
  POST /api/shorts/metrics        - 지표 재계산

Example:
  go run ./cmd/shorts api
  go run ./cmd/shorts api --port 8089`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	shorts := handlers.NewShortsHandler(a.sink(), a.repo, a.metricsService(), a.cfg.Tracker, a.log)
	health := func(r *http.Request) error {
		return a.db.Ping(r.Context())
	}
	server := api.New(a.cfg, a.log, api.NewRouter(shorts, health, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
