package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/middleware"
)

type imageResponse struct {
	ImageData string `json:"imageData"`
}

type videoResponse struct {
	Base64VideoData string `json:"base64VideoData"`
}

// Generate accepts {prompt, type} and answers with the base64 media payload.
// Non-POST requests are rejected before the body is touched.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		a.fail(w, r, &domain.Error{
			Kind: domain.KindMethodNotAllowed,
			Code: domain.CodeMethodNotAllowed,
			Err:  fmt.Errorf("method %s not allowed", r.Method),
		})
		return
	}

	req, err := domain.DecodeGenerationRequest(http.MaxBytesReader(w, r.Body, a.MaxRequestBytes))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if country := middleware.CountryFromContext(ctx); country != "" {
		ctx = zerolog.Ctx(ctx).With().Str("country", country).Logger().WithContext(ctx)
	}
	if a.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.RequestTimeout)
		defer cancel()
	}

	res, err := a.Service.Generate(ctx, req)
	if err != nil {
		a.fail(w, r.WithContext(ctx), err)
		return
	}

	switch res.MediaKind {
	case domain.ModalityVideo:
		a.json(w, http.StatusOK, videoResponse{Base64VideoData: res.EncodedPayload})
	default:
		a.json(w, http.StatusOK, imageResponse{ImageData: res.EncodedPayload})
	}
}
