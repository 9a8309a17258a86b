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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/ChrisBrooksbank/planningpoker-sub000/internal/adapters/http"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/adapters/redisstore"
	wssignal "github.com/ChrisBrooksbank/planningpoker-sub000/internal/adapters/signal"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/config"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	store := core.NewStore(core.StoreConfig{
		MaxSessions:     cfg.MaxSessions,
		MaxParticipants: cfg.MaxParticipants,
	})
	reg := app.NewRegistry(store, app.SimplePolicy{})
	ctl := wssignal.NewController(store, reg, wssignal.Options{
		ReadLimit: cfg.ReadLimit,
		WriteWait: cfg.WriteWait,
		RateLimit: app.RateLimit{Messages: cfg.RateLimit.Messages, Window: cfg.RateLimit.Window},
	})
	createLimiter := app.NewIPRateLimiter(cfg.CreateLimit.Requests, cfg.CreateLimit.Window)

	var persister *redisstore.Persister
	if cfg.Redis.Enabled {
		client, err := redisstore.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		defer client.Close()
		persister = redisstore.NewPersister(redisstore.NewRedisStore(client, cfg.Redis.TTL), store, cfg.Redis.FlushInterval)
		if _, err := persister.Restore(ctx); err != nil {
			log.Error().Err(err).Msg("restore sessions")
		}
	}

	r := router.SetupRouter(ctx, cfg, &router.Services{
		Store:         store,
		Registry:      reg,
		Signal:        ctl,
		CreateLimiter: createLimiter,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := router.NewServer(addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("planning poker server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return app.NewHeartbeat(reg, cfg.PingPeriod).Run(gctx) })
	g.Go(func() error { return app.NewReaper(store, reg, cfg.SessionTTL, cfg.ReapInterval).Run(gctx) })
	g.Go(func() error {
		ticker := time.NewTicker(cfg.CreateLimit.Window)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				createLimiter.Prune()
			}
		}
	})
	if persister != nil {
		g.Go(func() error { return persister.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		reg.CloseAll(core.CloseGoingAway, "server shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
