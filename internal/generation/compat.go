package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/deckgen/deckgen/internal/config"
	"github.com/deckgen/deckgen/pkg/logger"
)

// CompatProvider is the secondary binding: an HTTP chat-completion
// call against any OpenAI-compatible backend. The first attempt is
// multimodal; on any failure other than an authentication failure it
// retries once in text-only mode, because some compatible backends
// reject multimodal payloads.
type CompatProvider struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

func NewCompatProvider(cfg config.AIConfig, log *logger.Logger) *CompatProvider {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	// The environment proxy is honored only when asked for; backends on
	// private base URLs are usually reached directly.
	transport := &http.Transport{}
	if cfg.UseProxy {
		transport.Proxy = http.ProxyFromEnvironment
	}
	oc.HTTPClient = &http.Client{Transport: transport}

	return &CompatProvider{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.ModelName,
		log:    log,
	}
}

func (p *CompatProvider) Generate(ctx context.Context, req Request) (Result, error) {
	res, err := p.attempt(ctx, req, true)
	if err == nil {
		return res, nil
	}

	if isAuthFailure(err) {
		return Result{}, &AuthError{Message: err.Error()}
	}

	p.log.Debug("multimodal attempt failed (%v), retrying text-only", err)
	res, err = p.attempt(ctx, req, false)
	if err != nil && isAuthFailure(err) {
		return Result{}, &AuthError{Message: err.Error()}
	}
	return res, err
}

func (p *CompatProvider) attempt(ctx context.Context, req Request, withImage bool) (Result, error) {
	var content []openai.ChatMessagePart
	if withImage {
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.PNG)
		content = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: buildPrompt(req.Context, req.Language)},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
		}
	} else {
		content = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: textOnlyPrompt(req.Context, req.Language)},
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, &MalformedResponseError{Raw: "empty choices"}
	}

	return extractResult(resp.Choices[0].Message.Content)
}

// isAuthFailure spots 401/unauthorized responses, which are fatal to
// the request and must not trigger the text-only fallback.
func isAuthFailure(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusUnauthorized
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusUnauthorized
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized")
}
