package infra

import (
	"os"
	"strconv"
	"strings"
	"time"

	"mediagen/internal/infra/credentials"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	APIKey         credentials.APIKey
	GeminiBaseURL  string
	ImageModel     string
	VideoModel     string
	DefaultLocale  string
	GeoIPDBPath    string
	AllowedOrigins []string

	UpstreamTimeout  time.Duration
	PollInterval     time.Duration
	PollMultiplier   float64
	PollMaxInterval  time.Duration
	PollMaxWait      time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	RequestTimeout   time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MaxRequestBytes  int64
}

const (
	// writeTimeoutSlack pads the derived write deadline past the worst case
	// video pipeline.
	writeTimeoutSlack = 30 * time.Second
	// requestDeadlineSlack is how long before the write deadline a request
	// is abandoned, leaving room to write the error response.
	requestDeadlineSlack = 5 * time.Second
)

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The upstream credential is mandatory.
func LoadConfig() (*Config, error) {
	apiKey, err := credentials.Guard(os.LookupEnv, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		APIKey:          apiKey,
		GeminiBaseURL:   strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/"),
		ImageModel:      getEnv("IMAGE_MODEL", "imagen-3.0-generate-002"),
		VideoModel:      getEnv("VIDEO_MODEL", "veo-3.0-generate-preview"),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "en"),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		UpstreamTimeout: seconds(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 120)),
		PollInterval:    seconds(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)),
		PollMultiplier:  getEnvFloat("VIDEO_POLL_MULTIPLIER", 1),
		PollMaxInterval: seconds(getEnvInt("VIDEO_POLL_MAX_INTERVAL_SECONDS", 60)),
		PollMaxWait:     seconds(getEnvInt("VIDEO_POLL_MAX_WAIT_SECONDS", 600)),
		HTTPReadTimeout: seconds(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPIdleTimeout: seconds(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxRequestBytes: int64(getEnvInt("MAX_REQUEST_BYTES", 1<<20)),
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.PollMultiplier < 1 {
		cfg.PollMultiplier = 1
	}
	if cfg.PollMaxWait < 0 {
		cfg.PollMaxWait = 0
	}

	cfg.HTTPWriteTimeout = seconds(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", -1))
	if cfg.HTTPWriteTimeout < 0 {
		cfg.HTTPWriteTimeout = videoWriteTimeout(cfg.PollMaxWait, cfg.UpstreamTimeout)
	}
	cfg.RequestTimeout = requestDeadline(cfg.HTTPWriteTimeout)

	return cfg, nil
}

// videoWriteTimeout bounds a video response: the start call, the poll budget,
// a status call begun just inside it and the download each take up to one
// upstream timeout. An unbounded poll budget disables the deadline.
func videoWriteTimeout(pollMaxWait, upstream time.Duration) time.Duration {
	if pollMaxWait == 0 {
		return 0
	}
	return pollMaxWait + 3*upstream + writeTimeoutSlack
}

// requestDeadline returns how long a handler may work before it must answer,
// always strictly inside writeTimeout. Zero means no deadline.
func requestDeadline(writeTimeout time.Duration) time.Duration {
	switch {
	case writeTimeout <= 0:
		return 0
	case writeTimeout > 2*requestDeadlineSlack:
		return writeTimeout - requestDeadlineSlack
	default:
		return writeTimeout / 2
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
