package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type OpenAIWhisper struct {
	client *openai.Client
	model  string
}

var _ Provider = (*OpenAIWhisper)(nil)

// NewOpenAIWhisper builds a Whisper client; baseURL may be empty.
func NewOpenAIWhisper(apiKey, baseURL, model string) *OpenAIWhisper {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIWhisper{client: openai.NewClientWithConfig(cfg), model: model}
}

func (w *OpenAIWhisper) Close() error { return nil }

func (w *OpenAIWhisper) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(audio),
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", 0, fmt.Errorf("whisper: transcription: %w", err)
	}
	return resp.Text, 0, nil
}
