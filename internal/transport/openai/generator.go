package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/talentsift/talentsift/internal/domain"
	"github.com/talentsift/talentsift/internal/metrics"
)

// defaultSystemPrompt frames the model as a recruitment assistant working
// only from the retrieved résumé context.
const defaultSystemPrompt = "You are a recruitment assistant specialized in résumé analysis. " +
	"Answer questions about the candidates using only the context provided. " +
	"If the context does not contain the answer, say so."

// Generator synthesizes answers via the OpenAI-compatible chat completion API.
type Generator struct {
	client       *openai.Client
	model        string
	temperature  float32
	systemPrompt string
	maxAttempts  int
	timeout      time.Duration
	logger       *zap.Logger
}

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	SystemPrompt string
	MaxAttempts  int
	Timeout      time.Duration
	Logger       *zap.Logger
}

// NewGenerator creates an OpenAI-compatible answer generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		systemPrompt: systemPrompt,
		maxAttempts:  maxAttempts,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
}

// Generate sends the question with its assembled context and returns the
// synthesized answer. Attempts are bounded so a hosted-service outage
// surfaces as an error instead of hanging the interaction.
func (g *Generator) Generate(ctx context.Context, question, contextText string) (string, error) {
	prompt := buildPrompt(question, contextText)

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.complete(ctx, req)
		if err == nil {
			metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
			return text, nil
		}
		lastErr = err

		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		g.logger.Warn("chat completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxAttempts),
			zap.Error(err),
		)

		if ctx.Err() != nil || attempt == g.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	return "", &domain.GenerationError{Attempts: g.maxAttempts, Err: lastErr}
}

func (g *Generator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("empty completion from model %s", g.model)
	}

	return resp.Choices[0].Message.Content, nil
}

// buildPrompt matches the shape the hosted model is tuned for: context
// block first, then the question.
func buildPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("Based on the following context from candidate résumés, answer the question.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
