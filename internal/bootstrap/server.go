// Package bootstrap assembles the HTTP service from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"chronobooth/internal/catalog"
	"chronobooth/internal/compositor"
	"chronobooth/internal/http/handlers"
	"chronobooth/internal/http/httpapi"
	"chronobooth/internal/infra"
	"chronobooth/internal/providers/gemini"
	"chronobooth/internal/session"
)

// Gateway is what the service needs from a generation backend.
type Gateway interface {
	session.Gateway
	session.Authorizer
}

// LoadCatalog returns the embedded catalog unless a path overrides it.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// NewGateway picks the live Gemini gateway, or the synthetic one when no key
// is configured. The returned func releases the gateway.
func NewGateway(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (Gateway, func(), error) {
	if cfg.Offline() {
		logger.Warn().Msg("GEMINI_API_KEY not set, using synthetic gateway")
		return gemini.NewSynthetic(), func() {}, nil
	}
	gw, err := gemini.NewGateway(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini gateway: %w", err)
	}
	return gw, func() {
		if err := gw.Close(); err != nil {
			logger.Warn().Err(err).Msg("close gemini gateway")
		}
	}, nil
}

// Serve runs the API until ctx is cancelled.
func Serve(ctx context.Context, cfg *infra.Config, logger infra.Logger) error {
	cat, err := LoadCatalog(cfg.EraCatalogPath)
	if err != nil {
		return err
	}
	gw, closeGateway, err := NewGateway(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer closeGateway()

	compositor.SetMaxPixels(cfg.MaxImagePixels)
	store := session.NewStore(cfg.SessionTTL, cfg.CameraStartTimeout)
	ctrl := session.NewController(cat, gw, gw, cfg.GatewayConcurrency, logger)
	app := handlers.NewApp(ctrl, store, logger, cfg.MaxUploadBytes)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)
	logger.Info().
		Str("addr", server.Addr()).
		Int("eras", cat.Len()).
		Bool("offline", cfg.Offline()).
		Msg("API listening")
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
