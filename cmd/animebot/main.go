package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/anime-bot/internal/cache"
	"github.com/kitbuilder587/anime-bot/internal/config"
	"github.com/kitbuilder587/anime-bot/internal/jikan"
	"github.com/kitbuilder587/anime-bot/internal/metrics"
	"github.com/kitbuilder587/anime-bot/internal/ratelimit"
	"github.com/kitbuilder587/anime-bot/internal/service"
	"github.com/kitbuilder587/anime-bot/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "animebot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gate := ratelimit.NewGate(ratelimit.GateConfig{
		MinInterval:  cfg.RateLimit.MinInterval,
		MaxPerWindow: cfg.RateLimit.RequestsPerMin,
		Window:       time.Minute,
	}, ratelimit.WithLogger(logger), ratelimit.WithMetrics(m))

	queryCache := cache.New(gate, cache.WithLogger(logger), cache.WithMetrics(m))

	client := jikan.New(jikan.Config{
		BaseURL: cfg.Jikan.BaseURL,
		Timeout: cfg.Jikan.Timeout,
	}, logger)

	animeSvc := service.NewAnimeService(service.AnimeServiceDeps{
		Client:  client,
		Cache:   queryCache,
		Logger:  logger,
		Metrics: m,
	})

	chatLimiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.ChatRequestsPerMin,
	})

	bot, err := telegram.New(telegram.BotConfig{
		Token:          cfg.Telegram.Token,
		Debug:          cfg.Telegram.Debug,
		ResultsPerPage: cfg.Search.ResultsPerPage,
	}, telegram.Deps{
		Catalog: animeSvc,
		Gate:    gate,
		Limiter: chatLimiter,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(ctx)
	})

	g.Go(func() error {
		chatLimiter.Run(ctx, 0)
		return nil
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("anime bot started",
		zap.String("jikan_base_url", cfg.Jikan.BaseURL),
		zap.Duration("min_interval", cfg.RateLimit.MinInterval),
		zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMin),
		zap.Int("results_per_page", cfg.Search.ResultsPerPage),
	)

	err = g.Wait()

	// даем фоновым запросам кеша дописать результат
	drained := make(chan struct{})
	go func() {
		queryCache.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		logger.Warn("cache fetches still in flight at shutdown")
	}
	logger.Info("anime bot stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
