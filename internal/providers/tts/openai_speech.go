package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// OpenAISpeech synthesizes through the OpenAI speech endpoint. Voice IDs are
// the OpenAI voice names (alloy, echo, nova, ...).
type OpenAISpeech struct {
	client *openai.Client
	model  openai.SpeechModel
}

var _ Provider = (*OpenAISpeech)(nil)

func NewOpenAISpeech(apiKey, baseURL, model string) *OpenAISpeech {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISpeech{client: openai.NewClientWithConfig(cfg), model: openai.SpeechModel(model)}
}

func (s *OpenAISpeech) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("openai speech: read: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
