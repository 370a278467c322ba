// Package genai generates listing copy and pricing hints with the Gemini API.
// Every call degrades to fixed fallback text; callers never see an error.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gogenai "google.golang.org/genai"

	"github.com/fastygo/nexus/domain"
)

const (
	FallbackDescription = "AI generation requires a valid API key. Please fill in the description manually."
	FallbackPricing     = "AI pricing suggestions are unavailable."

	emptyDescription = "Could not generate a description."
	emptyPricing     = "No pricing suggestion available."
	maxFeatures      = 4
)

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// generator is the slice of *genai.Models the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*gogenai.Content, config *gogenai.GenerateContentConfig) (*gogenai.GenerateContentResponse, error)
}

type Client struct {
	models  generator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a client. Without an API key it returns a client that always
// answers with fallback text.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{model: cfg.Model, timeout: cfg.Timeout, logger: logger}
	if c.model == "" {
		c.model = "gemini-2.5-flash"
	}
	if c.timeout <= 0 {
		c.timeout = 20 * time.Second
	}
	if cfg.APIKey == "" {
		logger.Info("genai disabled, no api key configured")
		return c, nil
	}

	client, err := gogenai.NewClient(ctx, &gogenai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: gogenai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// Enabled reports whether requests reach the model.
func (c *Client) Enabled() bool {
	return c != nil && c.models != nil
}

// DescribeListing writes a marketing paragraph and up to four selling points.
func (c *Client) DescribeListing(ctx context.Context, name, coreFunction, audience string) domain.ListingCopy {
	fallback := domain.ListingCopy{Description: FallbackDescription, Features: []string{}}
	if !c.Enabled() {
		return fallback
	}

	prompt := fmt.Sprintf(`I am publishing a new app on an App Store style marketplace for AI tools.
App name: %s
Core function: %s
Target audience: %s

Return JSON with two fields and no markdown fences:
1. description: an attractive, professional and exciting marketing paragraph (about 150 words) that highlights the breakthrough advantages.
2. features: an array of 4 short selling points, each under 15 words.`, name, coreFunction, audience)

	text, err := c.generate(ctx, prompt, &gogenai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		c.logger.Warn("listing copy generation failed", zap.String("app", name), zap.Error(err))
		return fallback
	}
	return parseListingCopy(text)
}

// SuggestPricing recommends a pricing model and price point in one sentence.
func (c *Client) SuggestPricing(ctx context.Context, name, category string) string {
	if !c.Enabled() {
		return FallbackPricing
	}

	prompt := fmt.Sprintf(`Based on the app name %q and category %q, suggest a pricing model (free, one-time purchase or subscription) and a reasonable price point. Explain the reasoning in one sentence.`, name, category)

	text, err := c.generate(ctx, prompt, nil)
	if err != nil {
		c.logger.Warn("pricing suggestion failed", zap.String("app", name), zap.Error(err))
		return FallbackPricing
	}
	if text = strings.TrimSpace(text); text == "" {
		return emptyPricing
	}
	return text
}

func (c *Client) generate(ctx context.Context, prompt string, config *gogenai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.models.GenerateContent(ctx, c.model, gogenai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("empty response")
	}
	return resp.Text(), nil
}

// parseListingCopy decodes the JSON answer. Anything that is not JSON is used
// verbatim as the description.
func parseListingCopy(text string) domain.ListingCopy {
	trimmed := stripFences(text)
	if trimmed == "" {
		trimmed = "{}"
	}

	var payload struct {
		Description string   `json:"description"`
		Features    []string `json:"features"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return domain.ListingCopy{Description: strings.TrimSpace(text), Features: []string{}}
	}

	out := domain.ListingCopy{
		Description: strings.TrimSpace(payload.Description),
		Features:    make([]string, 0, maxFeatures),
	}
	if out.Description == "" {
		out.Description = emptyDescription
	}
	for _, f := range payload.Features {
		if f = strings.TrimSpace(f); f != "" && len(out.Features) < maxFeatures {
			out.Features = append(out.Features, f)
		}
	}
	return out
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
