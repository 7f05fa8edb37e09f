package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yoockh/podcaster/internal/audio"
	"github.com/yoockh/podcaster/internal/cache"
	"github.com/yoockh/podcaster/internal/dialogue"
	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/logger"
	"github.com/yoockh/podcaster/internal/media"
	llmmock "github.com/yoockh/podcaster/internal/providers/llm/mock"
	sttmock "github.com/yoockh/podcaster/internal/providers/stt/mock"
	ttsmock "github.com/yoockh/podcaster/internal/providers/tts/mock"
	"github.com/yoockh/podcaster/internal/repositories/memory"
	"github.com/yoockh/podcaster/internal/storage"
)

const (
	openingReply  = "A: Today we are talking about rivers.\nB: And why they never run straight."
	continueReply = "### Podcast Script:\nA: Why do rivers bend?\nB: The outer bank erodes faster.\nnot a dialogue line\n" +
		"### Suggested Follow-up Questions:\n1. What about deltas?\n2. How fast does it happen?"
	closingReply = "A: That is all for today.\nB: Thanks for listening."
)

// wavBytes renders a short mono clip.
func wavBytes(t *testing.T, n int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	data := make([]int, n)
	for i := range data {
		data[i] = 1000
	}
	require.NoError(t, audio.WriteMono16(path, data, 16000))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

type fakeAcquirer struct {
	path    string
	err     error
	refs    []string
	uploads []string
}

func (f *fakeAcquirer) Acquire(_ context.Context, ref string) (*media.Waveform, error) {
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return nil, f.err
	}
	return &media.Waveform{Path: f.path}, nil
}

func (f *fakeAcquirer) SaveUpload(name string, r io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, name)
	return "/uploads/" + name, nil
}

type harness struct {
	repo     *memory.SessionRepo
	sessions SessionService
	acquirer *fakeAcquirer
	stt      *sttmock.Provider
	fast     *llmmock.Provider
	main     *llmmock.Provider
	tts      *ttsmock.Provider
	locker   *cache.LocalLocker
	bus      *events.LocalBus
	mediaDir string
	workDir  string
	svc      PipelineService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "source.wav")
	require.NoError(t, os.WriteFile(src, wavBytes(t, 160), 0o644))

	h := &harness{
		repo:     memory.NewSessionRepo(),
		acquirer: &fakeAcquirer{path: src},
		stt:      &sttmock.Provider{Text: "rivers carve valleys over millennia"},
		fast:     &llmmock.Provider{Responses: []string{"rivers digest", openingReply}},
		main:     &llmmock.Provider{Responses: []string{continueReply}},
		tts:      &ttsmock.Provider{Audio: wavBytes(t, 1600)},
		locker:   cache.NewLocalLocker(),
		bus:      events.NewLocalBus(),
		mediaDir: filepath.Join(root, "media"),
		workDir:  filepath.Join(root, "work"),
	}
	h.sessions = NewSessionService(h.repo)

	log := logger.Discard()
	h.svc = NewPipelineService(PipelineDeps{
		Sessions:  h.sessions,
		Acquirer:  h.acquirer,
		STT:       h.stt,
		Writer:    dialogue.NewGenerator(h.fast, h.main),
		Speech:    NewSpeechService(h.tts, SpeechConfig{VoiceA: "543", VoiceB: "544", Concurrency: 4}, nil, log),
		Assembler: audio.NewAssembler(300*time.Millisecond, log),
		Publisher: storage.NewLocalPublisher(h.mediaDir, "/media"),
		Locker:    h.locker,
		Cache:     cache.NewMemoryCache(),
		Events:    h.bus,
		Log:       log,
	}, PipelineConfig{
		Language:  "th",
		MediaDir:  h.mediaDir,
		WorkDir:   h.workDir,
		LockTTL:   time.Minute,
	})
	return h
}
