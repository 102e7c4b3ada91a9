package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/infra"
)

// ErrMalformedResponse marks a 2xx response whose body could not be decoded.
var ErrMalformedResponse = errors.New("genai: malformed response")

// maxErrorBody caps how much of a failed response is kept as diagnostic.
const maxErrorBody = 64 << 10

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	VideoModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini REST endpoints used for image
// prediction and long-running video generation.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

// StatusError is returned for any non-2xx upstream response. Body holds the
// raw response (truncated) for pass-through diagnostics.
type StatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Sprintf("genai: %s status %d: %s", e.Op, e.StatusCode, apiErr.Error.Message)
	}
	if text := strings.TrimSpace(string(e.Body)); text != "" {
		return fmt.Sprintf("genai: %s status %d: %s", e.Op, e.StatusCode, text)
	}
	return fmt.Sprintf("genai: %s status %d", e.Op, e.StatusCode)
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one with a conservative timeout is created.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = "imagen-3.0-generate-002"
	}
	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = "veo-3.0-generate-preview"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		imageModel: imageModel,
		videoModel: videoModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// VideoModel returns the configured video model identifier.
func (c *Client) VideoModel() string {
	return c.videoModel
}

// Model describes a model as listed by the models API.
type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// GetModel looks up a model by id. It doubles as a cheap credential check.
func (c *Client) GetModel(ctx context.Context, model string) (*Model, error) {
	endpoint := fmt.Sprintf("%s/models/%s", c.baseURL, url.PathEscape(model))
	var out Model
	if err := c.invoke(ctx, "get model", http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type predictRequest struct {
	Instances  predictInstance   `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int `json:"sampleCount"`
}

// Prediction is a single generated image.
type Prediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType,omitempty"`
}

// PredictResponse is the decoded body of an image prediction call.
type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// Predict requests a single image for prompt.
func (c *Client) Predict(ctx context.Context, prompt string) (*PredictResponse, error) {
	payload := predictRequest{
		Instances:  predictInstance{Prompt: prompt},
		Parameters: predictParameters{SampleCount: 1},
	}
	var out PredictResponse
	if err := c.invoke(ctx, "predict", http.MethodPost, c.modelURL(c.imageModel, "predict"), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type videoRequest struct {
	Instances []predictInstance `json:"instances"`
}

// Operation is a long-running operation as reported by the operations API.
// Error is kept raw so it can be handed to callers untouched.
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    json.RawMessage `json:"error,omitempty"`
	Response *VideoResponse  `json:"response,omitempty"`
}

// VideoResponse is the payload of a finished video operation.
type VideoResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []GeneratedSample `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
}

// GeneratedSample references one produced video.
type GeneratedSample struct {
	Video struct {
		URI      string `json:"uri"`
		MimeType string `json:"mimeType,omitempty"`
	} `json:"video"`
}

// Failed reports whether the operation carries an embedded error.
func (o *Operation) Failed() bool {
	raw := strings.TrimSpace(string(o.Error))
	return raw != "" && raw != "null" && raw != "{}"
}

// ErrorMessage extracts a human readable message from the embedded error for
// logging. It never fails; unknown shapes yield "".
func (o *Operation) ErrorMessage() string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(o.Error, &e); err != nil {
		return ""
	}
	return e.Message
}

// VideoURI returns the reference to the first generated video, if any.
func (o *Operation) VideoURI() string {
	if o.Response == nil {
		return ""
	}
	for _, sample := range o.Response.GenerateVideoResponse.GeneratedSamples {
		if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
			return uri
		}
	}
	return ""
}

// StartVideo creates a long-running video generation operation.
func (c *Client) StartVideo(ctx context.Context, prompt string) (*Operation, error) {
	payload := videoRequest{Instances: []predictInstance{{Prompt: prompt}}}
	var op Operation
	if err := c.invoke(ctx, "start video", http.MethodPost, c.modelURL(c.videoModel, "predictLongRunning"), payload, &op); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", c.videoModel).
		Str("operation", op.Name).
		Msg("genai: video operation started")
	return &op, nil
}

// GetOperation fetches the current state of the named operation.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(name, "/")
	var op Operation
	if err := c.invoke(ctx, "get operation", http.MethodGet, endpoint, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Download opens the media at uri. The caller must close the returned body.
// The API key is only attached when uri points at the configured API host.
func (c *Client) Download(ctx context.Context, uri string) (io.ReadCloser, error) {
	target, err := c.resolve(uri)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("genai: create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai: download: %w", redactKey(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Op: "download", StatusCode: resp.StatusCode, Body: body}
	}
	return resp.Body, nil
}

func (c *Client) modelURL(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, url.PathEscape(model), method)
}

func (c *Client) resolve(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", errors.New("genai: empty media uri")
	}
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		uri = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	target, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("genai: invalid media uri %q: %w", uri, err)
	}
	base, err := url.Parse(c.baseURL)
	if err == nil && strings.EqualFold(target.Host, base.Host) {
		q := target.Query()
		if q.Get("key") == "" {
			q.Set("key", c.apiKey)
			target.RawQuery = q.Encode()
		}
	}
	return target.String(), nil
}

func (c *Client) invoke(ctx context.Context, op, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("genai: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("genai: create %s request: %w", op, err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genai: %s: %w", op, redactKey(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: data}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrMalformedResponse, op, err)
	}
	return nil
}

// redactKey strips the api key from the URL that net/http embeds in
// transport errors.
func redactKey(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if parsed, perr := url.Parse(ue.URL); perr == nil {
		q := parsed.Query()
		if q.Has("key") {
			q.Set("key", "REDACTED")
			parsed.RawQuery = q.Encode()
			ue.URL = parsed.String()
		}
	}
	return err
}
