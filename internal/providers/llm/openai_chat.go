package llm

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

type OpenAIChat struct {
	client      oai.Client
	model       string
	temperature float64
}

var _ Provider = (*OpenAIChat)(nil)

type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL     string
	temperature float64
}

func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

func WithTemperature(t float64) OpenAIOption {
	return func(c *openAIConfig) { c.temperature = t }
}

func NewOpenAIChat(apiKey, model string, opts ...OpenAIOption) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}
	cfg := &openAIConfig{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// a failed call fails the step; the caller decides whether to retry
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &OpenAIChat{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		temperature: cfg.temperature,
	}, nil
}

func (p *OpenAIChat) Model() string { return p.model }

func (p *OpenAIChat) Close() error { return nil }

func (p *OpenAIChat) Complete(ctx context.Context, messages []Message) (string, error) {
	params, err := p.buildParams(messages)
	if err != nil {
		return "", fmt.Errorf("openai: build params: %w", err)
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIChat) buildParams(messages []Message) (oai.ChatCompletionNewParams, error) {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, oai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			return oai.ChatCompletionNewParams{}, fmt.Errorf("unknown message role %q", m.Role)
		}
	}
	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: out,
	}
	if p.temperature != 0 {
		params.Temperature = param.NewOpt(p.temperature)
	}
	return params, nil
}
