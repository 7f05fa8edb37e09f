package llm

import (
	"context"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

type VertexGemini struct {
	client      *vertexgenai.Client
	modelName   string
	temperature float32
}

var _ Provider = (*VertexGemini)(nil)

func NewVertexGemini(ctx context.Context, projectID, location, modelName string, temperature float64, opts ...option.ClientOption) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName, temperature: float32(temperature)}, nil
}

func (v *VertexGemini) Model() string { return v.modelName }

func (v *VertexGemini) Close() error { return v.client.Close() }

// Complete maps system messages onto the model's system instruction and
// replays the rest as chat history; the final message is sent as the turn.
func (v *VertexGemini) Complete(ctx context.Context, messages []Message) (string, error) {
	system, history, last, err := splitForGemini(messages)
	if err != nil {
		return "", err
	}

	// GenerativeModel carries per-request settings, so build one per call.
	m := v.client.GenerativeModel(v.modelName)
	if v.temperature != 0 {
		m.SetTemperature(v.temperature)
	}
	if system != "" {
		m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(system)}}
	}
	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, vertexgenai.Text(last))
	if err != nil {
		return "", fmt.Errorf("vertex: send message: %w", err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("vertex: empty candidate")
	}
	return out, nil
}

func splitForGemini(messages []Message) (system string, history []*vertexgenai.Content, last string, err error) {
	var sys []string
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			sys = append(sys, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) == 0 {
		return "", nil, "", fmt.Errorf("vertex: no user message")
	}
	for _, m := range rest[:len(rest)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &vertexgenai.Content{
			Role:  role,
			Parts: []vertexgenai.Part{vertexgenai.Text(m.Content)},
		})
	}
	return strings.Join(sys, "\n\n"), history, rest[len(rest)-1].Content, nil
}
