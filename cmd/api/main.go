package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediagen/internal/generation"
	"mediagen/internal/http/handlers"
	httpapi "mediagen/internal/http/httpapi"
	"mediagen/internal/infra"
	"mediagen/internal/infra/geoip"
	"mediagen/internal/providers/genai"
	"mediagen/internal/providers/image"
	"mediagen/internal/providers/video"
)

const shutdownGrace = 30 * time.Second

func main() {
	_ = godotenv.Load()

	bootLogger := infra.NewLogger("production")
	cfg, err := infra.LoadConfig()
	if err != nil {
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := infra.NewLogger(cfg.AppEnv)

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip database unavailable, continuing without it")
	}
	defer resolver.Close()

	client, err := genai.NewClient(genai.Options{
		APIKey:     cfg.APIKey.Value(),
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.ImageModel,
		VideoModel: cfg.VideoModel,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	service := generation.NewService(
		image.NewImagen(client),
		video.NewVeo(client, video.PollPolicy{
			Interval:    cfg.PollInterval,
			Multiplier:  cfg.PollMultiplier,
			MaxInterval: cfg.PollMaxInterval,
			MaxWait:     cfg.PollMaxWait,
		}),
	)

	app := handlers.NewApp(service, cfg.MaxRequestBytes)
	app.RequestTimeout = cfg.RequestTimeout
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	// Requests outlive the signal until the grace period ends, then their
	// poll loops are cancelled.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	server := infra.NewHTTPServer(baseCtx, cfg, router)

	stop, release := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer release()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("image_model", client.ImageModel()).
			Str("video_model", client.VideoModel()).
			Msg("API listening")
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
		return
	case <-stop.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			cancelRequests()
		}
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
