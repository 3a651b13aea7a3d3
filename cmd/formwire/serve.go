package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/formwire"
	"github.com/aretw0/formwire/internal/presentation/tui"
	httpAdapter "github.com/aretw0/formwire/pkg/adapters/http"
	"github.com/aretw0/formwire/pkg/domain"
	"github.com/aretw0/formwire/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the forms over a JSON API: open a session, send field events, receive
command lists. Sessions are kept in memory, or in Redis when redis.addr is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if v, _ := cmd.Flags().GetBool("metrics"); v {
			cfg.Server.Metrics = true
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
		}
		if cmd.Flags().Changed("redis-prefix") {
			cfg.Redis.Prefix, _ = cmd.Flags().GetString("redis-prefix")
		}
		if cmd.Flags().Changed("session-ttl") {
			cfg.Session.TTL, _ = cmd.Flags().GetDuration("session-ttl")
		}
		if cmd.Flags().Changed("base-url") {
			cfg.Server.BaseURL, _ = cmd.Flags().GetString("base-url")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var (
			hooks    []domain.LifecycleHooks
			handlers []httpAdapter.Option
		)
		if cfg.Server.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			hooks = append(hooks, m.Hooks())
			handlers = append(handlers, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}

		a, err := newApp(cfg, hooks...)
		if err != nil {
			return err
		}
		defer a.close()

		handler, err := httpAdapter.NewHandler(a.kernel, append(handlers,
			httpAdapter.WithLogger(a.logger),
			httpAdapter.WithVersion(formwire.Version),
			httpAdapter.WithDefaultLocale(cfg.Locale),
			httpAdapter.WithReadiness(a.ready),
		)...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Session.TTL > 0 {
			go a.kernel.RunSweeper(ctx, sweepInterval(cfg.Session.TTL), cfg.Session.TTL)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("formwire server listening", "addr", srv.Addr, "forms", cfg.Forms)
			serverErrors <- srv.ListenAndServe()
		}()

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(formwire.Version))
		}

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			a.logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			a.logger.Info("formwire server stopped gracefully")
			return nil
		}
	},
}

// sweepInterval checks for idle sessions a few times per TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().String("redis", "", "Redis address for shared sessions, e.g. localhost:6379 (overrides config)")
	serveCmd.Flags().String("redis-prefix", "formwire:", "Prefix of the Redis keys (overrides config)")
	serveCmd.Flags().Duration("session-ttl", 30*time.Minute, "Idle time after which a session expires (overrides config)")
	serveCmd.Flags().String("base-url", "", "Absolute URL redirects are resolved against (overrides config)")
}
