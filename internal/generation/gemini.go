package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deckgen/deckgen/internal/config"
	"github.com/deckgen/deckgen/pkg/logger"
)

const (
	geminiMaxRetries = 3
	geminiBaseDelay  = 2 * time.Second
)

// GeminiProvider is the primary binding: a structured-output call
// constrained to the fixed response schema.
type GeminiProvider struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	retries   int
	baseDelay time.Duration
	log       *logger.Logger
}

func NewGeminiProvider(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"isValid":     {Type: genai.TypeBoolean},
		},
		Required: []string{"name", "description", "isValid"},
	}

	return &GeminiProvider{
		client:    client,
		model:     model,
		retries:   geminiMaxRetries,
		baseDelay: geminiBaseDelay,
		log:       log,
	}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Generate calls the model, retrying transient failures (rate limit,
// quota, unavailable) with exponential backoff of 2s, 4s, 8s.
// Exhausted or non-transient failures return the sentinel result
// rather than an error, so the outcome still renders as an
// inspectable, retryable failed card.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (Result, error) {
	parts := []genai.Part{
		genai.ImageData("png", req.PNG),
		genai.Text(buildPrompt(req.Context, req.Language)),
	}

	text, err := retryTransient(ctx, p.retries, p.baseDelay, func() (string, error) {
		resp, err := p.model.GenerateContent(ctx, parts...)
		if err != nil {
			p.log.Debug("gemini call failed: %v", err)
			return "", err
		}
		return responseText(resp), nil
	})
	if err == nil {
		res, perr := extractResult(text)
		if perr == nil {
			return res, nil
		}
		err = perr
	}

	return Result{
		Name:        SentinelName,
		Description: fmt.Sprintf("Generation failed: %v", err),
		IsValid:     true,
	}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			out += string(t)
		}
	}
	return out
}
