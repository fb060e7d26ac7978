package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.5-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider calls the Gemini API directly, bypassing OpenRouter.
type googleProvider struct {
	modelHolder
	client     *genai.Client
	classifier ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	u, err := ValidateBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}
	cc.HTTPOptions = genai.HTTPOptions{BaseURL: u, Headers: http.Header{}}
	for k, v := range config.Headers {
		cc.HTTPOptions.Headers.Set(k, v)
	}
	if config.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &googleProvider{
		modelHolder: modelHolder{model: model},
		client:      client,
		classifier:  ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends one GenerateContent request.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ro := ParseRequestOptions(opts, p.GetModel())

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, ro.Model, contents, p.buildConfig(ro))
	if err != nil {
		return "", 0, 0, p.classify(err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, NewProviderError("google", ErrorTypeUnknown, 0, "no text candidates", ErrEmptyResponse)
	}

	var in, out int
	if u := resp.UsageMetadata; u != nil {
		in, out = int(u.PromptTokenCount), int(u.CandidatesTokenCount)
	}
	return content, usageOr(in, prompt), usageOr(out, content), nil
}

func (p *googleProvider) buildConfig(ro RequestOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if ro.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(ro.System, genai.RoleUser)
	}
	if ro.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(clamp(*ro.Temperature, 0, 2)))
	}
	if ro.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(min(ro.MaxTokens, math.MaxInt32))
	}
	if ro.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func (p *googleProvider) classify(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if blockedBySafety(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "blocked by safety filters", err)
		}
		return p.classifier.ClassifyHTTPError(apiErr.Code, apiErr.Message, err)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return p.classifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err)
	}
	return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
}

func blockedBySafety(apiErr *googleapi.Error) bool {
	lower := strings.ToLower(apiErr.Message)
	if strings.Contains(lower, "safety") || strings.Contains(lower, "blocked") {
		return true
	}
	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}
	return false
}
