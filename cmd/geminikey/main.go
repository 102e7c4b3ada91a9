package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mediagen/internal/infra"
	"mediagen/internal/infra/credentials"
	"mediagen/internal/providers/genai"
)

// geminikey checks that an API key can reach the configured image and video
// models before the server is deployed with it.
func main() {
	var (
		keyFlag     string
		baseURLFlag string
		timeout     time.Duration
	)
	flag.StringVar(&keyFlag, "key", "", "API key to check (fallbacks to GOOGLE_API_KEY / GEMINI_API_KEY)")
	flag.StringVar(&baseURLFlag, "base-url", "", "Gemini API base URL (fallbacks to GEMINI_BASE_URL)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "timeout for each model lookup")
	flag.Parse()

	_ = godotenv.Load()

	lookup := os.LookupEnv
	if key := strings.TrimSpace(keyFlag); key != "" {
		lookup = func(string) (string, bool) { return key, true }
	}
	key, err := credentials.Guard(lookup, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	if err != nil {
		fmt.Fprintln(os.Stderr, "API key is required via -key or environment")
		os.Exit(1)
	}

	baseURL := strings.TrimSpace(baseURLFlag)
	if baseURL == "" {
		baseURL = os.Getenv("GEMINI_BASE_URL")
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "geminikey").Logger()
	client, err := genai.NewClient(genai.Options{
		APIKey:     key.Value(),
		BaseURL:    baseURL,
		ImageModel: os.Getenv("IMAGE_MODEL"),
		VideoModel: os.Getenv("VIDEO_MODEL"),
		Logger:     &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build client: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, model := range []string{client.ImageModel(), client.VideoModel()} {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		info, err := client.GetModel(ctx, model)
		cancel()
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", model, err)
			continue
		}
		fmt.Printf("%s: ok (%s)\n", model, strings.Join(info.SupportedGenerationMethods, ", "))
	}
	if failed {
		os.Exit(1)
	}
	fmt.Printf("API key %s can reach both models\n", key)
}
