package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/analyzer"
	"github.com/seo-optimizer/backend/config"
	"github.com/seo-optimizer/backend/history"
	"github.com/seo-optimizer/backend/logging"
	"github.com/seo-optimizer/backend/middleware"
	"github.com/seo-optimizer/backend/stats"
)

// statsRetentionMonths is how many months of scan statistics are kept on disk.
const statsRetentionMonths = 12

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", true)
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	statsStorage, err := stats.NewStorage(cfg.DataDir, log)
	if err != nil {
		return err
	}
	statsStorage.Cleanup(statsRetentionMonths)

	fetcher := analyzer.NewHTTPFetcher(analyzer.FetcherConfig{
		Timeout:      cfg.FetchTimeout,
		UserAgent:    cfg.UserAgent,
		MaxPageBytes: cfg.MaxPageBytes,
	})
	seoAnalyzer := analyzer.New(analyzer.Config{
		CacheTTL: cfg.CacheTTL,
		Extract:  analyzer.ExtractOptions{TreatWWWAsSameHost: cfg.WWWEquivalent},
	}, fetcher, statsStorage, log)
	defer func() {
		if err := seoAnalyzer.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Analyzer shutdown failed")
		}
	}()

	store, err := history.Open(cfg.HistoryBackend, cfg.DataDir, cfg.HistoryCapacity)
	if err != nil {
		return err
	}
	defer store.Close()

	requests, err := logging.NewStatistics(filepath.Join(cfg.DataDir, "statistics.json"))
	if err != nil {
		log.Warn().Err(err).Msg("Could not load request statistics, starting fresh")
	}
	defer func() {
		if err := requests.Save(); err != nil {
			log.Error().Err(err).Msg("Could not save request statistics")
		}
	}()

	srv := &server{
		analyzer: seoAnalyzer,
		history:  store,
		requests: requests,
		log:      log,
		devMode:  cfg.DevMode,
	}
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	router := srv.router(rateLimiter)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go rateLimiter.PruneEvery(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://localhost:"+cfg.Port).Str("history", cfg.HistoryBackend).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
