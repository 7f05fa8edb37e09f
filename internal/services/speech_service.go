package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/observe"
	"github.com/yoockh/podcaster/internal/providers/tts"
	"github.com/yoockh/podcaster/internal/utils"
)

// SpeechResult lists one clip path per turn, in turn order. Paths of failed
// turns are still listed; the file is simply absent.
type SpeechResult struct {
	Clips  []string
	Failed []int // 1-based turn indices
}

type SpeechService interface {
	Synthesize(ctx context.Context, dir string, turns []models.Turn) (*SpeechResult, error)
}

type SpeechConfig struct {
	VoiceA      string
	VoiceB      string
	Model       string
	Concurrency int
	Timeout     time.Duration
}

type speechService struct {
	tts     tts.Provider
	cfg     SpeechConfig
	metrics *observe.Metrics
	log     *logrus.Logger
}

func NewSpeechService(p tts.Provider, cfg SpeechConfig, metrics *observe.Metrics, log *logrus.Logger) SpeechService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	if log == nil {
		log = logrus.New()
	}
	return &speechService{tts: p, cfg: cfg, metrics: metrics, log: log}
}

// ClipName is the file name of a turn's clip; index is 1-based.
func ClipName(sp models.Speaker, index int) string {
	return fmt.Sprintf("%s_%d.wav", sp, index)
}

func (s *speechService) voiceFor(sp models.Speaker) string {
	if sp == models.SpeakerB {
		return s.cfg.VoiceB
	}
	return s.cfg.VoiceA
}

// Synthesize requests every turn concurrently, bounded by Concurrency. A
// failed turn is logged and left out; it never cancels the others. Only a
// cancelled ctx fails the whole call.
func (s *speechService) Synthesize(ctx context.Context, dir string, turns []models.Turn) (*SpeechResult, error) {
	const op = "SpeechService.Synthesize"

	if err := os.RemoveAll(dir); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to clear clip dir", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create clip dir", err)
	}

	res := &SpeechResult{Clips: make([]string, len(turns))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, t := range turns {
		index := i + 1
		path := filepath.Join(dir, ClipName(t.Speaker, index))
		res.Clips[i] = path

		g.Go(func() error {
			if err := s.synthesizeOne(ctx, t, path); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"turn":    index,
					"speaker": t.Speaker,
				}).Warn("speech synthesis failed; clip will be skipped")
				mu.Lock()
				res.Failed = append(res.Failed, index)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, utils.Upstream(op, "speech synthesis interrupted", err)
	}
	return res, nil
}

func (s *speechService) synthesizeOne(ctx context.Context, t models.Turn, path string) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	start := time.Now()
	audio, err := s.tts.Synthesize(ctx, t.Text, s.voiceFor(t.Speaker))
	s.metrics.RecordCall(ctx, "tts", "synthesize", s.cfg.Model, time.Since(start), err)
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		return tts.ErrEmptyAudio
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write clip: %w", err)
	}
	return nil
}
