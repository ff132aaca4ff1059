package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/join"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	serve := newServeCmd(&cfgFile)
	root := &cobra.Command{
		Use:   "ecommerce-dashboard",
		Short: "Interactive sales analytics over the Olist e-commerce tables",
		Long: `Loads the seven Olist CSV tables, joins them into one fact table and
serves an interactive dashboard of time series, city and category rankings,
RFM segment breakdowns and a revenue map.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (defaults and environment only when empty)")
	root.AddCommand(serve, newReportCmd(&cfgFile))
	return root
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(cfg.Logger)
			slog.SetDefault(logger)

			return runServer(cmd.Context(), cfg, logger)
		},
	}
}

// loadAnalytics reads and joins the dataset within the configured timeout.
func loadAnalytics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services.Analytics, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Dataset.LoadTimeout)
	defer cancel()

	start := time.Now()
	analytics := services.NewAnalytics().WithLogger(logger)
	if err := analytics.LoadFromDir(ctx, cfg.Paths(), join.Options{Strict: cfg.Dataset.StrictJoin}); err != nil {
		return nil, err
	}
	logger.Info("dataset ready", "dir", cfg.Dataset.Dir, "duration", time.Since(start))
	return analytics, nil
}

func dashboardHandler(analytics *services.Analytics, sentinel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		extent := analytics.Extent()
		page := templates.Page{
			Extent:        extent,
			Sentinel:      sentinel,
			Categories:    analytics.Categories(extent),
			Granularities: []string{string(services.Daily), string(services.Weekly), string(services.Monthly), string(services.Yearly)},
		}

		w.Header().Set("Cache-Control", cacheMaxAge)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newHandler wires the routes behind the middleware chain.
func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics, cfg.Dataset.CategorySentinel),
	}
	srv := server.NewServer(analytics, cfg.Dataset.CategorySentinel, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger, srv.Route),
		middleware.Metrics(srv.Route),
		middleware.Tracing(srv.Route, logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting application",
		"version", "1.0.0",
		"address", cfg.Address(),
		"data_dir", cfg.Dataset.Dir,
		"strict_join", cfg.Dataset.StrictJoin,
	)

	analytics, err := loadAnalytics(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}

	logger.Info("application stopped gracefully")
	return nil
}
