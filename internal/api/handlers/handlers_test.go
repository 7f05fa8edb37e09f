package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/repositories/memory"
	"github.com/yoockh/podcaster/internal/services"
	"github.com/yoockh/podcaster/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type fakePipeline struct {
	initSource string
	uploadName string
	uploadBody string
	extendID   string
	question   string
	finalized  []string
	err        error
}

func (f *fakePipeline) Initialize(_ context.Context, source string) (*services.InitializeResult, error) {
	f.initSource = source
	if f.err != nil {
		return nil, f.err
	}
	return &services.InitializeResult{SessionID: "s1", Summary: "sum", SuggestedQuestions: "q"}, nil
}

func (f *fakePipeline) InitializeUpload(_ context.Context, name string, r io.Reader) (*services.InitializeResult, error) {
	b, _ := io.ReadAll(r)
	f.uploadName, f.uploadBody = name, string(b)
	return &services.InitializeResult{SessionID: "s2"}, nil
}

func (f *fakePipeline) Extend(_ context.Context, id, q string) (*services.ExtendResult, error) {
	f.extendID, f.question = id, q
	if f.err != nil {
		return nil, f.err
	}
	return &services.ExtendResult{SessionID: id, Script: "A: x", TurnsAdded: 1}, nil
}

func (f *fakePipeline) Finalize(_ context.Context, id string) (*services.FinalizeResult, error) {
	f.finalized = append(f.finalized, id)
	if f.err != nil {
		return nil, f.err
	}
	return &services.FinalizeResult{SessionID: id, AudioPath: "/tmp/x.wav", AudioURL: "/media/x.wav"}, nil
}

type fakeQueue struct{ ids []string }

func (q *fakeQueue) Enqueue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

func newPodcastRouter(p services.PipelineService, q *fakeQueue, maxUpload int64) *gin.Engine {
	return newPodcastRouterWithSessions(p, nil, q, maxUpload)
}

func newPodcastRouterWithSessions(p services.PipelineService, sessions services.SessionService, q *fakeQueue, maxUpload int64) *gin.Engine {
	var h *PodcastHandler
	if q == nil {
		h = NewPodcastHandler(p, sessions, nil, maxUpload)
	} else {
		h = NewPodcastHandler(p, sessions, q, maxUpload)
	}
	r := gin.New()
	r.POST("/step1", h.Initialize)
	r.POST("/step1/upload", h.Upload)
	r.POST("/step2", h.Extend)
	r.POST("/step3", h.Finalize)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var e APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestInitialize_AcceptsYoutubeURL(t *testing.T) {
	p := &fakePipeline{}
	w := do(newPodcastRouter(p, nil, 0), http.MethodPost, "/step1", `{"youtube_url":"https://youtu.be/x"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://youtu.be/x", p.initSource)
	assert.Contains(t, w.Body.String(), `"session_id":"s1"`)
	assert.Contains(t, w.Body.String(), `"suggested_questions":"q"`)
}

func TestInitialize_MissingSource(t *testing.T) {
	w := do(newPodcastRouter(&fakePipeline{}, nil, 0), http.MethodPost, "/step1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeInvalidArgument, decodeError(t, w).Code)
}

func TestInitialize_SourceErrorMapsTo422(t *testing.T) {
	p := &fakePipeline{err: utils.E(utils.CodeSourceError, "Acquirer.Acquire", "source not found", nil)}
	w := do(newPodcastRouter(p, nil, 0), http.MethodPost, "/step1", `{"source":"nope.mp3"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "source not found", decodeError(t, w).Message)
}

func TestUpload(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "talk.mp3")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("audio-bytes"))
	require.NoError(t, mw.Close())

	p := &fakePipeline{}
	req := httptest.NewRequest(http.MethodPost, "/step1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	newPodcastRouter(p, nil, 1<<20).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "talk.mp3", p.uploadName)
	assert.Equal(t, "audio-bytes", p.uploadBody)
}

func TestUpload_MissingFile(t *testing.T) {
	w := do(newPodcastRouter(&fakePipeline{}, nil, 0), http.MethodPost, "/step1/upload", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtend(t *testing.T) {
	p := &fakePipeline{}
	w := do(newPodcastRouter(p, nil, 0), http.MethodPost, "/step2", `{"session_id":"s1","question":"why?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", p.extendID)
	assert.Equal(t, "why?", p.question)
	assert.Contains(t, w.Body.String(), `"script":"A: x"`)
}

func TestExtend_ErrorMapping(t *testing.T) {
	cases := map[utils.Code]int{
		utils.CodeNotFound:            http.StatusNotFound,
		utils.CodeConflict:            http.StatusConflict,
		utils.CodeUpstream:            http.StatusBadGateway,
		utils.CodeTimeout:             http.StatusGatewayTimeout,
		utils.CodeMalformedGeneration: http.StatusBadGateway,
	}
	for code, status := range cases {
		t.Run(string(code), func(t *testing.T) {
			p := &fakePipeline{err: utils.E(code, "op", "msg", nil)}
			w := do(newPodcastRouter(p, nil, 0), http.MethodPost, "/step2", `{"session_id":"s1","question":"q"}`)
			assert.Equal(t, status, w.Code)
			assert.Equal(t, code, decodeError(t, w).Code)
		})
	}
}

func TestExtend_MissingQuestion(t *testing.T) {
	p := &fakePipeline{}
	w := do(newPodcastRouter(p, nil, 0), http.MethodPost, "/step2", `{"session_id":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.extendID)
}

func TestFinalize_Sync(t *testing.T) {
	p := &fakePipeline{}
	w := do(newPodcastRouter(p, &fakeQueue{}, 0), http.MethodPost, "/step3", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got FinalizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, FinalizeResponse{SessionID: "s1", AudioPath: "/media/x.wav"}, got)
}

func TestFinalize_AsyncQueues(t *testing.T) {
	p := &fakePipeline{}
	q := &fakeQueue{}
	w := do(newPodcastRouter(p, q, 0), http.MethodPost, "/step3", `{"session_id":"s1","async":true}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"s1"}, q.ids)
	assert.Empty(t, p.finalized)
	assert.Contains(t, w.Body.String(), `"status":"queued"`)
}

func TestFinalize_AsyncUnknownSessionIs404(t *testing.T) {
	p := &fakePipeline{}
	q := &fakeQueue{}
	sessions := services.NewSessionService(memory.NewSessionRepo())
	w := do(newPodcastRouterWithSessions(p, sessions, q, 0), http.MethodPost, "/step3", `{"session_id":"never-created","async":true}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, utils.CodeNotFound, decodeError(t, w).Code)
	assert.Empty(t, q.ids)
	assert.Empty(t, p.finalized)
}

func TestFinalize_AsyncKnownSessionQueues(t *testing.T) {
	ctx := context.Background()
	sessions := services.NewSessionService(memory.NewSessionRepo())
	s := sessions.Create("s1", "talk.wav")
	s.Append(models.Turn{Speaker: models.SpeakerA, Text: "x"})
	require.NoError(t, sessions.Save(ctx, s))

	q := &fakeQueue{}
	w := do(newPodcastRouterWithSessions(&fakePipeline{}, sessions, q, 0), http.MethodPost, "/step3", `{"session_id":"s1","async":true}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"s1"}, q.ids)
}

func TestFinalize_AsyncWithoutQueueRunsInline(t *testing.T) {
	p := &fakePipeline{}
	w := do(newPodcastRouter(p, nil, 0), http.MethodPost, "/step3", `{"session_id":"s1","async":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1"}, p.finalized)
}

func TestSessionHandler(t *testing.T) {
	ctx := context.Background()
	svc := services.NewSessionService(memory.NewSessionRepo())
	s := svc.Create("s1", "talk.wav")
	s.Append(models.Turn{Speaker: models.SpeakerA, Text: "hello there"})
	require.NoError(t, svc.Save(ctx, s))

	h := NewSessionHandler(svc)
	r := gin.New()
	r.GET("/sessions", h.List)
	r.GET("/sessions/:session_id", h.Get)

	w := do(r, http.MethodGet, "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hello there"`)

	w = do(r, http.MethodGet, "/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/sessions?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"s1"`)

	w = do(r, http.MethodGet, "/sessions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
