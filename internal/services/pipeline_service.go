package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/podcaster/internal/audio"
	"github.com/yoockh/podcaster/internal/cache"
	"github.com/yoockh/podcaster/internal/dialogue"
	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/media"
	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/observe"
	"github.com/yoockh/podcaster/internal/providers/stt"
	"github.com/yoockh/podcaster/internal/storage"
	"github.com/yoockh/podcaster/internal/utils"
)

const (
	StepInitialize = "initialize"
	StepExtend     = "extend"
	StepFinalize   = "finalize"
)

type InitializeResult struct {
	SessionID          string `json:"session_id"`
	Summary            string `json:"summary"`
	SuggestedQuestions string `json:"suggested_questions"`
}

type ExtendResult struct {
	SessionID          string   `json:"session_id"`
	Script             string   `json:"script"`
	SuggestedQuestions string   `json:"suggested_questions"`
	QuestionList       []string `json:"suggested_question_list"`
	TurnsAdded         int      `json:"turns_added"`
	Warnings           []string `json:"warnings,omitempty"`
}

type FinalizeResult struct {
	SessionID string `json:"session_id"`
	AudioPath string `json:"-"`
	AudioURL  string `json:"audio_url"`
	VideoURL  string `json:"video_url,omitempty"`
	Clips     int    `json:"clips"`
	Skipped   int    `json:"skipped"`
}

// PipelineService moves a session through Initialize, Extend and Finalize.
// Each step starts from the stored record and either saves its complete
// result or nothing.
type PipelineService interface {
	Initialize(ctx context.Context, source string) (*InitializeResult, error)
	InitializeUpload(ctx context.Context, filename string, r io.Reader) (*InitializeResult, error)
	Extend(ctx context.Context, sessionID, question string) (*ExtendResult, error)
	Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error)
}

// SourceAcquirer resolves source references and stages uploads.
type SourceAcquirer interface {
	Acquire(ctx context.Context, ref string) (*media.Waveform, error)
	SaveUpload(name string, r io.Reader, limit int64) (string, error)
}

// Writer is the dialogue-writing surface the pipeline needs.
type Writer interface {
	SystemInstructor
	Summarize(ctx context.Context, transcript string) (string, error)
	Opening(ctx context.Context, summary string) ([]models.Turn, error)
	Continue(ctx context.Context, system string, window []models.Turn, question string) (*dialogue.Batch, error)
	Closing(ctx context.Context, tail []models.Turn) ([]models.Turn, error)
}

type PipelineConfig struct {
	Language          string
	STTModel          string
	BootstrapQuestion string
	ContextTurns      int
	ClosingTurns      int
	SystemTurns       int
	MediaDir          string
	WorkDir           string
	TranscribeTimeout time.Duration
	LockTTL           time.Duration
	TranscriptTTL     time.Duration
	MaxUploadBytes    int64
}

type PipelineDeps struct {
	Sessions  SessionService
	Acquirer  SourceAcquirer
	STT       stt.Provider
	Writer    Writer
	Speech    SpeechService
	Assembler *audio.Assembler
	Publisher storage.Publisher
	Locker    cache.Locker
	Cache     cache.Cache
	Events    events.Bus
	Metrics   *observe.Metrics
	Log       *logrus.Logger
}

type pipelineService struct {
	PipelineDeps
	cfg PipelineConfig
	now func() time.Time
}

func NewPipelineService(deps PipelineDeps, cfg PipelineConfig) PipelineService {
	if deps.Locker == nil {
		deps.Locker = cache.NewLocalLocker()
	}
	if deps.Events == nil {
		deps.Events = events.NewLocalBus()
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.NopMetrics()
	}
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	if cfg.BootstrapQuestion == "" {
		cfg.BootstrapQuestion = "Where should we start?"
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 8
	}
	if cfg.ClosingTurns <= 0 {
		cfg.ClosingTurns = 20
	}
	if cfg.SystemTurns <= 0 {
		cfg.SystemTurns = 6
	}
	return &pipelineService{PipelineDeps: deps, cfg: cfg, now: time.Now}
}

func (p *pipelineService) Initialize(ctx context.Context, source string) (res *InitializeResult, err error) {
	const op = "PipelineService.Initialize"

	source = strings.TrimSpace(source)
	if source == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "source is required", nil)
	}
	sessionID := NewSessionID(p.now())
	ctx, log, done := p.begin(ctx, StepInitialize, sessionID)
	defer func() { done(err, "") }()

	wav, err := p.Acquirer.Acquire(ctx, source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := wav.Remove(); rerr != nil {
			log.WithError(rerr).Warn("failed to remove normalized audio")
		}
	}()

	transcript, err := p.transcribe(ctx, wav.Path)
	if err != nil {
		return nil, err
	}
	log.WithField("transcript_chars", len(transcript)).Info("transcribed source")

	summary, err := p.Writer.Summarize(ctx, transcript)
	if err != nil {
		return nil, err
	}
	opening, err := p.Writer.Opening(ctx, summary)
	if err != nil {
		return nil, err
	}
	if len(opening) == 0 {
		log.Warn("opening produced no dialogue lines")
	}

	sess := p.Sessions.Create(sessionID, source)
	sess.Summary = summary
	sess.Append(opening...)

	batch, err := p.extendOnce(ctx, sess, p.cfg.BootstrapQuestion)
	if err != nil {
		return nil, err
	}
	if len(batch.Turns) == 0 {
		log.Warn("bootstrap continuation produced no dialogue lines")
	}
	if len(sess.Turns) == 0 {
		return nil, utils.E(utils.CodeMalformedGeneration, op, "generator returned no speaker-prefixed lines", nil)
	}

	if err := p.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	p.Metrics.AddTurns(ctx, StepInitialize, len(sess.Turns))
	log.WithField("turns", len(sess.Turns)).Info("session initialized")

	return &InitializeResult{
		SessionID:          sess.SessionID,
		Summary:            summary,
		SuggestedQuestions: sess.SuggestedQuestions,
	}, nil
}

func (p *pipelineService) InitializeUpload(ctx context.Context, filename string, r io.Reader) (*InitializeResult, error) {
	limit := p.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 1000 << 20
	}
	path, err := p.Acquirer.SaveUpload(filename, r, limit)
	if err != nil {
		return nil, err
	}
	return p.Initialize(ctx, path)
}

func (p *pipelineService) Extend(ctx context.Context, sessionID, question string) (res *ExtendResult, err error) {
	const op = "PipelineService.Extend"

	question = strings.TrimSpace(question)
	if sessionID == "" || question == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and question are required", nil)
	}
	ctx, log, done := p.begin(ctx, StepExtend, sessionID)
	defer func() { done(err, "") }()

	release, err := p.lock(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := p.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finalized() {
		log.Warn("extending a finalized session; finalize again to refresh the audio")
	}

	batch, err := p.extendOnce(ctx, sess, question)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if len(batch.Turns) == 0 {
		warnings = append(warnings, "generator returned no speaker-prefixed lines; no turns were added")
		log.Warn("continuation produced no dialogue lines")
	}
	if batch.Suggestions == "" {
		warnings = append(warnings, "generator returned no suggested follow-up questions")
	}

	sess.UpdatedAt = p.now().UTC()
	if err := p.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	p.Metrics.AddTurns(ctx, StepExtend, len(batch.Turns))
	log.WithFields(logrus.Fields{"added": len(batch.Turns), "turns": len(sess.Turns)}).Info("session extended")

	return &ExtendResult{
		SessionID:          sessionID,
		Script:             batch.Script,
		SuggestedQuestions: batch.Suggestions,
		QuestionList:       dialogue.QuestionList(batch.Suggestions),
		TurnsAdded:         len(batch.Turns),
		Warnings:           warnings,
	}, nil
}

// extendOnce appends one continuation batch to sess in memory.
func (p *pipelineService) extendOnce(ctx context.Context, sess *models.Session, question string) (*dialogue.Batch, error) {
	cc := BuildChatContext(sess, p.Writer, p.cfg.ContextTurns, p.cfg.SystemTurns)
	batch, err := p.Writer.Continue(ctx, cc.System, cc.Window, question)
	if err != nil {
		return nil, err
	}
	sess.Append(batch.Turns...)
	sess.SuggestedQuestions = batch.Suggestions
	sess.Rounds++
	return batch, nil
}

func (p *pipelineService) Finalize(ctx context.Context, sessionID string) (res *FinalizeResult, err error) {
	const op = "PipelineService.Finalize"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	ctx, log, done := p.begin(ctx, StepFinalize, sessionID)
	defer func() {
		url := ""
		if res != nil {
			url = res.AudioURL
		}
		done(err, url)
	}()

	release, err := p.lock(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := p.Sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A finalized session already carries its closing; re-finalizing only
	// re-renders the audio.
	added := 0
	if sess.Finalized() {
		log.Info("session already finalized, re-rendering without a new closing")
	} else {
		closing, err := p.Writer.Closing(ctx, models.LastTurns(sess.Turns, p.cfg.ClosingTurns))
		if err != nil {
			return nil, err
		}
		if len(closing) == 0 {
			log.Warn("closing produced no dialogue lines")
		}
		added = sess.Append(closing...)
	}

	clipDir := filepath.Join(p.cfg.WorkDir, sessionID)
	speech, err := p.Speech.Synthesize(ctx, clipDir, sess.Turns)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := os.RemoveAll(clipDir); rerr != nil {
			log.WithError(rerr).Warn("failed to remove clip dir")
		}
	}()

	if err := os.MkdirAll(p.cfg.MediaDir, 0o755); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to prepare media dir", err)
	}
	outPath := filepath.Join(p.cfg.MediaDir, "podcast_final_"+sessionID+".wav")
	rep, err := p.Assembler.Assemble(speech.Clips, outPath)
	if err != nil {
		if errors.Is(err, audio.ErrNoClips) {
			return nil, utils.E(utils.CodeUpstream, op, "no turn could be synthesized", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to assemble audio", err)
	}
	p.Metrics.AddSkippedClips(ctx, len(rep.Skipped))
	if len(rep.Skipped) > 0 {
		log.WithField("skipped", len(rep.Skipped)).Warn("some turns are missing from the final audio")
	}

	url, err := p.Publisher.Publish(ctx, outPath)
	if err != nil {
		return nil, utils.Upstream(op, "failed to publish audio", err)
	}
	videoURL := p.publishSiblingVideo(ctx, log, outPath)

	sess.AudioPath = &outPath
	sess.AudioURL = &url
	sess.UpdatedAt = p.now().UTC()
	if err := p.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	p.Metrics.AddTurns(ctx, StepFinalize, added)
	log.WithFields(logrus.Fields{
		"clips":    rep.Clips,
		"duration": rep.Duration.String(),
		"audio":    url,
	}).Info("session finalized")

	return &FinalizeResult{
		SessionID: sessionID,
		AudioPath: outPath,
		AudioURL:  url,
		VideoURL:  videoURL,
		Clips:     rep.Clips,
		Skipped:   len(rep.Skipped),
	}, nil
}

func (p *pipelineService) publishSiblingVideo(ctx context.Context, log *logrus.Entry, audioPath string) string {
	video := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".mp4"
	if _, err := os.Stat(video); err != nil {
		return ""
	}
	url, err := p.Publisher.Publish(ctx, video)
	if err != nil {
		log.WithError(err).Warn("failed to publish video")
		return ""
	}
	return url
}

func (p *pipelineService) transcribe(ctx context.Context, wavPath string) (string, error) {
	const op = "PipelineService.transcribe"

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to read normalized audio", err)
	}

	key := "transcript:" + p.cfg.Language + ":" + media.Fingerprint(data)
	if p.Cache != nil {
		var cached string
		if hit, _ := p.Cache.GetJSON(ctx, key, &cached); hit && cached != "" {
			return cached, nil
		}
	}

	callCtx := ctx
	if p.cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.TranscribeTimeout)
		defer cancel()
	}
	start := time.Now()
	text, _, err := p.STT.Transcribe(callCtx, data, p.cfg.Language)
	p.Metrics.RecordCall(ctx, "stt", "transcribe", p.cfg.STTModel, time.Since(start), err)
	if err != nil {
		return "", utils.Upstream(op, "transcription failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", utils.E(utils.CodeUpstream, op, "transcription returned no text", nil)
	}

	if p.Cache != nil {
		_ = p.Cache.SetJSON(ctx, key, text, p.cfg.TranscriptTTL)
	}
	return text, nil
}

func (p *pipelineService) lock(ctx context.Context, op, sessionID string) (func(), error) {
	release, err := p.Locker.Acquire(ctx, "session:"+sessionID, p.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, utils.ErrLocked) {
			return nil, utils.E(utils.CodeConflict, op, "another step is running for this session", err)
		}
		return nil, err
	}
	return release, nil
}

// begin opens the span, log entry and status event for one step. The
// returned done closes all three.
func (p *pipelineService) begin(ctx context.Context, step, sessionID string) (context.Context, *logrus.Entry, func(err error, audioURL string)) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline."+step)
	log := p.Log.WithFields(observe.LogFields(ctx)).WithFields(logrus.Fields{
		"session_id": sessionID,
		"step":       step,
	})
	p.publish(ctx, log, events.Event{SessionID: sessionID, Step: step, Status: events.StatusProcessing})

	return ctx, log, func(err error, audioURL string) {
		took := time.Since(start)
		p.Metrics.RecordStep(ctx, step, took, err)
		observe.EndSpan(span, err)

		ev := events.Event{SessionID: sessionID, Step: step, Status: events.StatusDone, AudioURL: audioURL}
		if err != nil {
			ev.Status = events.StatusFailed
			ev.Code = string(utils.CodeOf(err))
			ev.Message = err.Error()
			log.WithError(err).WithField("took", took.String()).Error("step failed")
		} else {
			log.WithField("took", took.String()).Debug("step done")
		}
		// the request context may already be cancelled
		p.publish(context.WithoutCancel(ctx), log, ev)
	}
}

func (p *pipelineService) publish(ctx context.Context, log *logrus.Entry, ev events.Event) {
	if err := p.Events.Publish(ctx, ev); err != nil {
		log.WithError(err).Debug("status publish failed")
	}
}
