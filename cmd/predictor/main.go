package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/cdobratz/nfl-sentiment-analyzer/internal/cfg"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/collector"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/games"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/metrics"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/model"
	"github.com/cdobratz/nfl-sentiment-analyzer/internal/storage"
)

func main() {
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("data_path", c.DataPath).Msg("storage initialization failed")
	}
	defer store.Close()

	predictor := model.NewPredictor(store, mw)
	if err := predictor.Reload(); err != nil {
		if errors.Is(err, storage.ErrNoModel) {
			log.Info().Msg("no stored model yet, starting untrained")
		} else {
			log.Warn().Err(err).Msg("stored model could not be loaded, starting untrained")
		}
	}

	startMetricsServer(ctx, c, predictor)

	var wg sync.WaitGroup

	worker := model.NewWorker(predictor, store, c.StatsWindow, c.RetrainInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	startCollector(ctx, &wg, c, store, mw, worker)

	waitForShutdown(ctx, cancel, &wg)
}

// startMetricsServer exposes /metrics and /health.
func startMetricsServer(ctx context.Context, c cfg.Settings, predictor *model.Predictor) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if !predictor.Ready() {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("model not ready"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// startCollector wires the upstream game source when configured: an initial
// season backfill, then the live score stream feeding storage. A completed
// game arriving over the stream triggers a retrain.
func startCollector(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings,
	store *storage.Store, mw *metrics.Wrapper, worker *model.Worker,
) {
	if c.GamesAPIURL == "" {
		log.Info().Msg("no games API configured, serving from stored history only")
		return
	}

	client := collector.NewClient(c.GamesAPIURL, c.RESTTimeout, mw)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, season := range c.Seasons {
			recs, err := client.FetchSeason(ctx, season)
			if err != nil {
				log.Error().Err(err).Str("season", season).Msg("season backfill failed")
				continue
			}
			for _, rec := range recs {
				if err := store.StoreGame(rec); err != nil {
					log.Warn().Err(err).Str("game_id", rec.GameID).Msg("failed to store game")
					mw.StoreErrorsInc()
				}
			}
		}
		if len(c.Seasons) > 0 {
			worker.Trigger()
		}
	}()

	if c.ScoreStreamURL == "" {
		return
	}

	updates := make(chan games.Record, 64)
	errs := make(chan error, 16)
	stream := collector.NewScoreStream(c.ScoreStreamURL, mw)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := stream.Stream(ctx, updates, errs); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("score stream ended")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				log.Warn().Err(err).Msg("score stream error")
			case rec := <-updates:
				if err := store.StoreGame(rec); err != nil {
					log.Warn().Err(err).Str("game_id", rec.GameID).Msg("failed to store game update")
					mw.StoreErrorsInc()
					continue
				}
				if _, known := rec.HomeWon(); known {
					worker.Trigger()
				}
			}
		}
	}()
}

// waitForShutdown blocks on a shutdown signal and drains the background
// goroutines.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
