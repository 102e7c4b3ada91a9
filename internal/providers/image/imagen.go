package image

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/providers/genai"
)

var errNoImage = errors.New("image: prediction response has no image data")

// Predictor is the slice of the Gemini client used for still images.
type Predictor interface {
	Predict(ctx context.Context, prompt string) (*genai.PredictResponse, error)
}

// Imagen generates a still image with a single blocking predict call.
type Imagen struct {
	client Predictor
}

// NewImagen wires the generator to a predictor.
func NewImagen(client Predictor) *Imagen {
	return &Imagen{client: client}
}

// Generate returns the upstream base64 payload untouched.
func (g *Imagen) Generate(ctx context.Context, prompt string) (*domain.GenerationResult, error) {
	resp, err := g.client.Predict(ctx, prompt)
	if err != nil {
		de := genai.Classify(ctx, err, domain.StageDispatchStart, domain.CodeImageRequestFailed)
		if de.Kind == domain.KindUpstreamShape {
			// A 2xx with an unreadable body produced no usable artifact.
			de.Stage = domain.StageFetch
			de.Code = domain.CodeImageUnavailable
		}
		return nil, de
	}

	if len(resp.Predictions) == 0 || strings.TrimSpace(resp.Predictions[0].BytesBase64Encoded) == "" {
		zerolog.Ctx(ctx).Error().Int("predictions", len(resp.Predictions)).Msg("image: no image data in prediction response")
		return nil, &domain.Error{
			Kind:  domain.KindUpstreamShape,
			Stage: domain.StageFetch,
			Code:  domain.CodeImageUnavailable,
			Err:   errNoImage,
		}
	}

	first := resp.Predictions[0]
	mime := first.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &domain.GenerationResult{
		EncodedPayload: first.BytesBase64Encoded,
		MediaKind:      domain.ModalityImage,
		MIMEType:       mime,
	}, nil
}
