package gemini

import (
	"context"
	"fmt"
	"io"

	"chronobooth/internal/domain"
	"chronobooth/internal/infra"
)

// Gateway adapts the REST client and the text writer to the session's
// generation contract. Failures are wrapped with domain.ErrProviderFailure.
type Gateway struct {
	client *Client
	writer *Writer
	closer io.Closer
}

// NewGateway builds the remote gateway from configuration.
func NewGateway(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*Gateway, error) {
	client, err := NewClient(Options{
		APIKey:       cfg.GeminiAPIKey,
		VideoAPIKey:  cfg.VideoAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		ImageModel:   cfg.GeminiImageModel,
		VideoModel:   cfg.VeoModel,
		PollInterval: cfg.VideoPollInterval,
		MaxPolls:     cfg.VideoMaxPolls,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	text, err := NewSDKText(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		client: client,
		writer: NewWriter(text, cfg.GeminiTextModel, cfg.GeminiAnalysisModel),
		closer: text,
	}, nil
}

// NewGatewayFrom assembles a gateway from already built parts.
func NewGatewayFrom(client *Client, writer *Writer) *Gateway {
	return &Gateway{client: client, writer: writer}
}

func (g *Gateway) InventScenario(ctx context.Context) (domain.Scenario, error) {
	title, desc, directive, err := g.writer.InventScenario(ctx)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return domain.Scenario{Title: title, ShortDescription: desc, VisualDirective: directive}, nil
}

func (g *Gateway) RenderSceneWithSubject(ctx context.Context, framed []byte, directive string) (*domain.Media, error) {
	data, mime, err := g.client.RenderScene(ctx, framed, directive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return &domain.Media{Data: data, MIME: mime}, nil
}

func (g *Gateway) AnimateScene(ctx context.Context, img *domain.Media, directive string) (*domain.Media, error) {
	data, mime, err := g.client.AnimateScene(ctx, img.Data, img.MIME, directive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return &domain.Media{Data: data, MIME: mime}, nil
}

func (g *Gateway) ApplyEdit(ctx context.Context, img *domain.Media, instruction string) (*domain.Media, error) {
	data, mime, err := g.client.ApplyEdit(ctx, img.Data, img.MIME, instruction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return &domain.Media{Data: data, MIME: mime}, nil
}

func (g *Gateway) DescribeScene(ctx context.Context, img *domain.Media) (string, error) {
	text, err := g.writer.DescribeScene(ctx, img.Data, img.MIME)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return text, nil
}

// VideoKeyAvailable reports the billable-key capability required for video.
func (g *Gateway) VideoKeyAvailable() bool {
	return g.client.VideoKeyAvailable()
}

func (g *Gateway) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}
