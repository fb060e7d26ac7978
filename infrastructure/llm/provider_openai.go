package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouter exposes an OpenAI-compatible chat completions endpoint.
const (
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	OpenRouterDefaultModel = "google/gemini-2.5-flash-preview"
	OpenAIDefaultModel     = "gpt-4.1-mini"
)

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
	RegisterProviderFactory("openrouter", newOpenRouterProvider)
}

// openAIProvider speaks the OpenAI chat completions protocol, either to
// OpenAI itself or to a compatible gateway such as OpenRouter.
type openAIProvider struct {
	modelHolder
	client     *openai.Client
	classifier ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	return newChatCompletionsProvider("openai", config, "", OpenAIDefaultModel)
}

func newOpenRouterProvider(config ClientConfig) (CoreLLM, error) {
	return newChatCompletionsProvider("openrouter", config, OpenRouterBaseURL, OpenRouterDefaultModel)
}

func newChatCompletionsProvider(name string, config ClientConfig, defaultURL, defaultModel string) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	model := config.Model
	if model == "" {
		model = defaultModel
	}

	cc := openai.DefaultConfig(config.APIKey)
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	if baseURL != "" {
		u, err := ValidateBaseURL(baseURL)
		if err != nil {
			return nil, err
		}
		cc.BaseURL = u
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	if len(config.Headers) > 0 {
		httpClient.Transport = headerTransport{headers: config.Headers, next: http.DefaultTransport}
	}
	cc.HTTPClient = httpClient

	return &openAIProvider{
		modelHolder: modelHolder{model: model},
		client:      openai.NewClientWithConfig(cc),
		classifier:  ErrorClassifier{Provider: name},
	}, nil
}

// DoRequest sends one chat completion.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ro := ParseRequestOptions(opts, p.GetModel())

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(prompt, ro))
	if err != nil {
		return "", 0, 0, p.classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", 0, 0, NewProviderError(p.classifier.Provider, ErrorTypeUnknown, 0, "no content", ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	return content, usageOr(resp.Usage.PromptTokens, prompt), usageOr(resp.Usage.CompletionTokens, content), nil
}

func (p *openAIProvider) buildRequest(prompt string, ro RequestOptions) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if ro.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: ro.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:     ro.Model,
		Messages:  msgs,
		MaxTokens: ro.MaxTokens,
	}
	if ro.Temperature != nil {
		req.Temperature = float32(clamp(*ro.Temperature, 0, 2))
	}
	if ro.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

func (p *openAIProvider) classify(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return p.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}
	return NewProviderError(p.classifier.Provider, ErrorTypeNetwork, 0, "request failed", err)
}

// headerTransport adds fixed headers, such as OpenRouter's HTTP-Referer
// and X-Title attribution, to every request.
type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

// usageOr returns reported when positive, otherwise an estimate for text.
func usageOr(reported int, text string) int {
	if reported > 0 {
		return reported
	}
	return EstimateTokens(text)
}
