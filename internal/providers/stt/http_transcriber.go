package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/bytedance/sonic"
)

// HTTPTranscriber posts the waveform as multipart form data to a
// self-hosted transcription service: field "audios" carries the file,
// "language" the hint, and the reply is {"transcribe_text": "..."}.
type HTTPTranscriber struct {
	endpoint string
	hc       *http.Client
}

var _ Provider = (*HTTPTranscriber)(nil)

func NewHTTPTranscriber(endpoint string, hc *http.Client) *HTTPTranscriber {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPTranscriber{endpoint: endpoint, hc: hc}
}

func (h *HTTPTranscriber) Close() error { return nil }

type transcribeResponse struct {
	TranscribeText string `json:"transcribe_text"`
}

func (h *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="audios"; filename="audio.wav"`)
	hdr.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", 0, err
	}
	if _, err := part.Write(audio); err != nil {
		return "", 0, err
	}
	if err := mw.WriteField("language", language); err != nil {
		return "", 0, err
	}
	if err := mw.Close(); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.hc.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("transcribe: post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("transcribe: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", 0, fmt.Errorf("transcribe: status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var out transcribeResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return "", 0, fmt.Errorf("transcribe: decode: %w", err)
	}
	return out.TranscribeText, 0, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
