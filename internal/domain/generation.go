package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Modality is the requested output kind.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
)

// Valid reports whether m is a recognized modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityImage, ModalityVideo:
		return true
	default:
		return false
	}
}

// ParseModality maps the wire value onto a Modality. Matching is exact.
func ParseModality(s string) (Modality, bool) {
	m := Modality(s)
	return m, m.Valid()
}

// GenerationRequest is a validated inbound request.
type GenerationRequest struct {
	Prompt   string   `json:"prompt"`
	Modality Modality `json:"type"`
}

var (
	errPromptAndTypeRequired = errors.New("prompt and type are required")
	errInvalidType           = errors.New("unsupported generation type")
	errTrailingData          = errors.New("decode request: unexpected data after JSON object")
)

// Validate checks the request without side effects.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" || strings.TrimSpace(string(r.Modality)) == "" {
		return NewClientError(CodePromptAndTypeRequired, errPromptAndTypeRequired)
	}
	if !r.Modality.Valid() {
		return NewClientError(CodeInvalidType, fmt.Errorf("%w: %q", errInvalidType, r.Modality))
	}
	return nil
}

// DecodeGenerationRequest parses and validates a request body.
func DecodeGenerationRequest(body io.Reader) (GenerationRequest, error) {
	var req GenerationRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return GenerationRequest{}, NewClientError(CodeInvalidPayload, fmt.Errorf("decode request: %w", err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return GenerationRequest{}, NewClientError(CodeInvalidPayload, errTrailingData)
	}
	if err := req.Validate(); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// GenerationResult carries transport-safe media for exactly one modality.
type GenerationResult struct {
	EncodedPayload string
	MediaKind      Modality
	MIMEType       string
}
