package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ksyq12/sslops/internal/config"
	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/logger"
	"github.com/ksyq12/sslops/internal/metrics"
	"github.com/ksyq12/sslops/internal/ssl"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run periodic renewal sweeps and expose metrics",
	Long: `Run the renewal worker in the foreground. A sweep runs at start and then
every sweep.interval (12h by default). Prometheus metrics are served on
metrics.addr at /metrics until SIGINT or SIGTERM.

Examples:
  sslops serve
  SSLOPS_METRICS_ADDR=127.0.0.1:9100 sslops serve --verbose`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Metrics.Addr, err)
	}
	return serve(ctx, cfg, ln, prometheus.DefaultRegisterer, promhttp.Handler())
}

// serve runs the renew worker and the metrics server on ln until ctx is
// cancelled or the server fails.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, reg prometheus.Registerer, metricsHandler http.Handler) error {
	m, err := metrics.New(reg)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	_, mgr, err := newManager(cfg, m)
	if err != nil {
		_ = ln.Close()
		return err
	}
	worker := ssl.NewRenewWorker(mgr, cfg.Sweep.Interval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("metrics server listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "graceful shutdown failed")
		}
		logger.Info("metrics server stopped")
		return nil
	})

	return g.Wait()
}
