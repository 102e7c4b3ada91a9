// Package generation routes a validated request to the matching media
// generator.
package generation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
)

// Generator produces one artifact for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*domain.GenerationResult, error)
}

// Service dispatches requests by modality.
type Service struct {
	images Generator
	videos Generator
}

func NewService(images, videos Generator) *Service {
	return &Service{images: images, videos: videos}
}

// Generate validates req and invokes exactly one generator. Every returned
// error is a *domain.Error.
func (s *Service) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var gen Generator
	switch req.Modality {
	case domain.ModalityImage:
		gen = s.images
	case domain.ModalityVideo:
		gen = s.videos
	}
	if gen == nil {
		return nil, &domain.Error{
			Kind: domain.KindInternal,
			Code: domain.CodeInternal,
			Err:  fmt.Errorf("generation: no generator wired for %q", req.Modality),
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("type", string(req.Modality)).
		Int("prompt_len", len(req.Prompt)).
		Msg("generation: request accepted")

	res, err := gen.Generate(ctx, req.Prompt)
	if err != nil {
		return nil, domain.Normalize(err)
	}
	return res, nil
}
