package recommend

import (
	"context"
	"errors"

	"github.com/samber/oops"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// GeminiGenerator generates text with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, oops.Code("GEMINI_CONFIG").Errorf("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, oops.Code("GEMINI_CONFIG").Wrap(err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", oops.Code("GEMINI_REQUEST_FAILED").With("model", g.model).Wrap(err)
	}
	text := resp.Text()
	if text == "" {
		return "", oops.Code("GEMINI_REQUEST_FAILED").With("model", g.model).Wrap(errors.New("empty response"))
	}
	return text, nil
}

// Unavailable is the generator used when Gemini is not configured.  Every
// call fails.
type Unavailable struct{ Reason error }

func (u Unavailable) Generate(context.Context, string) (string, error) {
	if u.Reason == nil {
		return "", errors.New("text generator unavailable")
	}
	return "", u.Reason
}
