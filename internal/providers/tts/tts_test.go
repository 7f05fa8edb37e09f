package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPVoice_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "543", r.FormValue("voice_id"))
		assert.Equal(t, "hello", r.FormValue("script"))
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF...."))
	}))
	defer srv.Close()

	audio, err := NewHTTPVoice(srv.URL, srv.Client()).Synthesize(context.Background(), "hello", "543")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF...."), audio)
}

func TestHTTPVoice_ErrorStatusIsNotAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPVoice(srv.URL, nil).Synthesize(context.Background(), "hello", "543")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestHTTPVoice_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewHTTPVoice(srv.URL, nil).Synthesize(context.Background(), "hello", "543")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestOpenAISpeech_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, sonic.Unmarshal(body, &req))
		assert.Equal(t, "tts-1", req["model"])
		assert.Equal(t, "nova", req["voice"])
		assert.Equal(t, "wav", req["response_format"])
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFFwav"))
	}))
	defer srv.Close()

	audio, err := NewOpenAISpeech("sk-test", srv.URL+"/v1", "").Synthesize(context.Background(), "hi", "nova")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFwav"), audio)
}
