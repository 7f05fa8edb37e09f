package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// HTTPVoice posts form fields voice_id and script to a voice service that
// replies with the raw WAV body.
type HTTPVoice struct {
	endpoint string
	hc       *http.Client
}

var _ Provider = (*HTTPVoice)(nil)

func NewHTTPVoice(endpoint string, hc *http.Client) *HTTPVoice {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPVoice{endpoint: endpoint, hc: hc}
}

func (v *HTTPVoice) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("voice_id", voiceID); err != nil {
		return nil, err
	}
	if err := mw.WriteField("script", text); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := v.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice: post: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("voice: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("voice: status %d", resp.StatusCode)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}
