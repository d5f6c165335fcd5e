package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Rorical/zoltar/internal/models"
)

const DefaultModel = "gpt-4o-mini"

// Personas for direct questions
const (
	PersonaBaseline   = "baseline"
	PersonaEngineered = "engineered"
)

const baselinePrompt = `You are Zoltar, a clear and helpful oracle.
- Be brief and direct (at most 6-8 sentences).
- If you lack information, say so plainly and name what is missing.
- Do not invent figures, proper names or dubious references.
- If asked for steps, give a short actionable list.`

const engineeredPrompt = `You are Zoltar, an expert oracle: rigorous and charming.
Rules:
1) Favor practical usefulness: answer with clear, actionable steps.
2) Do not hallucinate. If there is no evidence, say so and suggest how to get it.
3) Be concise (120-180 words) unless the user asks for detail.
4) If the question is ambiguous, list 2-3 clarifying questions.
5) Keep a respectful, encouraging tone without excess ornament.`

// SystemPrompt returns the prompt for a persona; unknown personas get the engineered one
func SystemPrompt(persona string) string {
	if strings.EqualFold(persona, PersonaBaseline) {
		return baselinePrompt
	}
	return engineeredPrompt
}

// ChatCompleter is the subset of *openai.Client used here
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIBackend answers direct questions through an OpenAI-compatible API
type OpenAIBackend struct {
	client       ChatCompleter
	model        string
	systemPrompt string
	timeout      time.Duration
	logger       *slog.Logger
}

func NewOpenAIBackend(client ChatCompleter, model, persona string, timeout time.Duration, logger *slog.Logger) *OpenAIBackend {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIBackend{
		client:       client,
		model:        model,
		systemPrompt: SystemPrompt(persona),
		timeout:      timeout,
		logger:       logger,
	}
}

// NewOpenAIClient builds the go-openai client for an API key and optional base URL
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func (o *OpenAIBackend) Dispatch(ctx context.Context, mode models.Mode, query string) models.AnswerResult {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	logger := o.logger.With("mode", mode.String(), "model", o.model)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0.2,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			logger.Warn("openai api error", "status", apiErr.HTTPStatusCode, "error", apiErr.Message)
			return models.Failed(&models.Failure{
				Kind:       models.BackendError,
				StatusCode: apiErr.HTTPStatusCode,
				Detail:     apiErr.Message,
				Err:        err,
			})
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			logger.Warn("openai request error", "status", reqErr.HTTPStatusCode, "error", reqErr.Err)
			return models.Failed(&models.Failure{
				Kind:       models.BackendError,
				StatusCode: reqErr.HTTPStatusCode,
				Err:        err,
			})
		}
		return transportFailure(logger, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return malformed(logger, errors.New("completion has no content"))
	}
	return models.Success(resp.Choices[0].Message.Content, nil)
}

// Router picks a backend per mode
type Router struct {
	direct   Backend
	grounded Backend
}

func NewRouter(direct, grounded Backend) *Router {
	return &Router{direct: direct, grounded: grounded}
}

func (r *Router) Dispatch(ctx context.Context, mode models.Mode, query string) models.AnswerResult {
	if mode == models.Grounded {
		return r.grounded.Dispatch(ctx, mode, query)
	}
	return r.direct.Dispatch(ctx, mode, query)
}
