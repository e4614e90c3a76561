package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/ghostchat/internal/adapters/http"
	"github.com/dkeye/ghostchat/internal/adapters/origin"
	"github.com/dkeye/ghostchat/internal/adapters/rtc"
	sig "github.com/dkeye/ghostchat/internal/adapters/signal"
	"github.com/dkeye/ghostchat/internal/app"
	"github.com/dkeye/ghostchat/internal/app/orch"
	"github.com/dkeye/ghostchat/internal/auth"
	"github.com/dkeye/ghostchat/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	ice, err := rtc.NewConfiguration(cfg.ICEServers)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ice servers")
	}
	policy, err := app.ParsePolicy(cfg.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backpressure policy")
	}

	reg := app.NewRegistry()
	o := orch.New(reg, app.NewRoomDirectory(), app.NewDispatcher(reg, policy))

	origins := origin.NewPolicy(cfg.AllowedOrigins)
	ctrl := sig.NewSignalWSController(o, auth.NewVerifier(cfg.JWTSecret), sig.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
		CheckOrigin:  origins.CheckOrigin,
	})

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:    o,
		Signal:  ctrl,
		Names:   auth.NewNames(),
		Issuer:  auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		ICE:     rtc.ClientConfigFrom(ice),
		Origins: origins,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("ghostchat server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
