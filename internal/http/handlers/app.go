package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/middleware"
)

// Generator is the core the handlers expose over HTTP.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
}

type App struct {
	Service         Generator
	MaxRequestBytes int64

	// RequestTimeout ends generation early enough to still write a response
	// before the server's write deadline. Zero disables it.
	RequestTimeout time.Duration
}

func NewApp(service Generator, maxRequestBytes int64) *App {
	if maxRequestBytes <= 0 {
		maxRequestBytes = 1 << 20
	}
	return &App{Service: service, MaxRequestBytes: maxRequestBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	middleware.WriteJSON(w, code, v)
}

// fail logs err with its stage and renders it as the error envelope. It is the
// only way handlers report failures.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	de := domain.Normalize(err)
	log := zerolog.Ctx(r.Context())
	event := log.Error()
	if de.ClientFault() || de.Kind == domain.KindCancelled {
		event = log.Warn()
	}
	event.Err(de).
		Str("kind", string(de.Kind)).
		Str("stage", string(de.Stage)).
		Str("code", de.Code).
		Int("status", de.HTTPStatus()).
		Msg("request failed")
	middleware.WriteError(w, r, de)
}
