package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	ErrLLMDisabled = errors.New("llm integration is not configured")
	ErrBadPrompt   = errors.New("prompt is required")
)

// Model is one text generation backend. schema may be nil for free text.
type Model interface {
	Generate(ctx context.Context, prompt string, schema map[string]any) (string, error)
}

type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, ErrLLMDisabled
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	var cfg *genai.GenerateContentConfig
	if schema != nil {
		cfg = &genai.GenerateContentConfig{
			ResponseMIMEType:   "application/json",
			ResponseJsonSchema: schema,
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	return resp.Text(), nil
}

// LLM is the InvokeLLM integration. A nil model means disabled.
type LLM struct {
	model  Model
	logger *zap.Logger
}

func NewLLM(model Model, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{model: model, logger: logger}
}

func (l *LLM) Enabled() bool {
	return l != nil && l.model != nil
}

// Invoke runs one prompt. With a schema the reply is decoded as a JSON
// object; without one it is returned as {"response": text}. No retries.
func (l *LLM) Invoke(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	if !l.Enabled() {
		return nil, ErrLLMDisabled
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrBadPrompt
	}

	start := time.Now()
	text, err := l.model.Generate(ctx, prompt, schema)
	l.logger.Debug("llm_invoke",
		zap.Int("prompt_chars", len(prompt)),
		zap.Bool("schema", schema != nil),
		zap.Duration("dur", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		return nil, err
	}

	if schema == nil {
		return map[string]any{"response": text}, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(stripFences(text)), &out); err != nil {
		return nil, fmt.Errorf("decode llm json: %w", err)
	}
	return out, nil
}

// stripFences drops a ```json fence some models wrap around JSON replies.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
