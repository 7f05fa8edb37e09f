package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/podcaster/config"
	"github.com/yoockh/podcaster/internal/audio"
	"github.com/yoockh/podcaster/internal/cache"
	"github.com/yoockh/podcaster/internal/dialogue"
	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/media"
	"github.com/yoockh/podcaster/internal/observe"
	"github.com/yoockh/podcaster/internal/providers/llm"
	"github.com/yoockh/podcaster/internal/providers/stt"
	"github.com/yoockh/podcaster/internal/providers/tts"
	"github.com/yoockh/podcaster/internal/repositories"
	"github.com/yoockh/podcaster/internal/repositories/memory"
	mongorepo "github.com/yoockh/podcaster/internal/repositories/mongo"
	pgrepo "github.com/yoockh/podcaster/internal/repositories/postgres"
	"github.com/yoockh/podcaster/internal/services"
	"github.com/yoockh/podcaster/internal/storage"
	"github.com/yoockh/podcaster/internal/workers"
)

func openStore(s *config.Settings, log *logrus.Logger) (repositories.SessionRepository, func(), error) {
	switch s.Store.Driver {
	case "postgres":
		if err := config.InitPostgres(s.Store); err != nil {
			return nil, nil, err
		}
		if err := pgrepo.Migrate(config.PostgresDB); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("PostgreSQL connected")
		return pgrepo.NewSessionRepo(config.PostgresDB), func() {
			if sqlDB, err := config.PostgresDB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	case "mongo":
		if err := config.InitMongo(s.Store); err != nil {
			return nil, nil, err
		}
		if err := config.EnsureMongoIndexes(s.Store.MongoDB); err != nil {
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.Info("MongoDB connected")
		return mongorepo.NewSessionRepo(config.MongoClient.Database(s.Store.MongoDB)), func() {
			_ = config.MongoClient.Disconnect(context.Background())
		}, nil
	default:
		log.Warn("using the in-memory session store; sessions are lost on restart")
		return memory.NewSessionRepo(), func() {}, nil
	}
}

// infra holds the cross-request coordination pieces. Each has a redis and
// an in-process variant.
type infra struct {
	locker cache.Locker
	cache  cache.Cache
	bus    events.Bus
	redis  bool
}

func openInfra(s *config.Settings, log *logrus.Logger) (*infra, error) {
	if !config.RedisConfigured() {
		log.Warn("redis not configured; session locks and status events are process-local")
		return &infra{
			locker: cache.NewLocalLocker(),
			cache:  cache.NewMemoryCache(),
			bus:    events.NewLocalBus(),
		}, nil
	}
	if err := config.InitRedis(); err != nil {
		return nil, err
	}
	log.Info("Redis connected")
	return &infra{
		locker: cache.NewRedisLocker(config.RedisClient),
		cache:  cache.NewRedisCache(config.RedisClient),
		bus:    events.NewRedisBus(config.RedisClient),
		redis:  true,
	}, nil
}

type providerSet struct {
	stt  stt.Provider
	fast llm.Provider
	main llm.Provider
	tts  tts.Provider
}

func (p *providerSet) Close() {
	for _, c := range []interface{ Close() error }{p.stt, p.fast, p.main} {
		if c != nil {
			_ = c.Close()
		}
	}
}

func openProviders(ctx context.Context, s *config.Settings) (*providerSet, error) {
	out := &providerSet{}
	var err error

	switch s.Transcription.Provider {
	case "google":
		out.stt, err = stt.NewGoogleSpeech(ctx)
		if err != nil {
			return nil, fmt.Errorf("google speech: %w", err)
		}
	case "openai":
		out.stt = stt.NewOpenAIWhisper(s.LLM.APIKey, s.LLM.BaseURL, s.Transcription.Model)
	default:
		out.stt = stt.NewHTTPTranscriber(s.Transcription.Endpoint, &http.Client{Timeout: s.Transcription.Timeout})
	}

	newLLM := func(model string) (llm.Provider, error) {
		if s.LLM.Provider == "vertex" {
			return llm.NewVertexGemini(ctx, s.LLM.ProjectID, s.LLM.Location, model, s.LLM.Temperature)
		}
		opts := []llm.OpenAIOption{llm.WithTemperature(s.LLM.Temperature)}
		if s.LLM.BaseURL != "" {
			opts = append(opts, llm.WithBaseURL(s.LLM.BaseURL))
		}
		return llm.NewOpenAIChat(s.LLM.APIKey, model, opts...)
	}
	if out.fast, err = newLLM(s.LLM.FastModel); err != nil {
		return nil, err
	}
	if out.main, err = newLLM(s.LLM.Model); err != nil {
		_ = out.fast.Close()
		return nil, err
	}

	switch s.Voice.Provider {
	case "openai":
		out.tts = tts.NewOpenAISpeech(s.LLM.APIKey, s.LLM.BaseURL, s.Voice.Model)
	default:
		out.tts = tts.NewHTTPVoice(s.Voice.Endpoint, &http.Client{Timeout: s.Voice.Timeout})
	}
	return out, nil
}

func openPublisher(ctx context.Context, s *config.Settings) (storage.Publisher, func(), error) {
	if s.Publish.GCSBucket == "" {
		return storage.NewLocalPublisher(s.Server.MediaDir, s.Publish.MediaURL), func() {}, nil
	}
	up, err := storage.NewGCSUploader(ctx, s.Publish.GCSBucket)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewUploadPublisher(up, "podcasts"), func() { _ = up.Close() }, nil
}

func newPipeline(
	s *config.Settings,
	log *logrus.Logger,
	metrics *observe.Metrics,
	sessions services.SessionService,
	in *infra,
	p *providerSet,
	publisher storage.Publisher,
) services.PipelineService {
	writer := dialogue.NewGenerator(p.fast, p.main,
		dialogue.WithHosts(s.Podcast.HostA, s.Podcast.HostB),
		dialogue.WithGreetings(s.Podcast.GreetingPhrases),
		dialogue.WithTimeout(s.LLM.Timeout),
		dialogue.WithObserver(func(ctx context.Context, task, model string, took time.Duration, err error) {
			metrics.RecordCall(ctx, "llm", task, model, took, err)
		}),
	)
	speech := services.NewSpeechService(p.tts, services.SpeechConfig{
		VoiceA:      s.Voice.VoiceA,
		VoiceB:      s.Voice.VoiceB,
		Model:       s.Voice.Model,
		Concurrency: s.Voice.Concurrency,
		Timeout:     s.Voice.Timeout,
	}, metrics, log)

	return services.NewPipelineService(services.PipelineDeps{
		Sessions:  sessions,
		Acquirer:  media.NewAcquirer(s.Server.DownloadDir, nil, log),
		STT:       p.stt,
		Writer:    writer,
		Speech:    speech,
		Assembler: audio.NewAssembler(s.Podcast.Gap, log),
		Publisher: publisher,
		Locker:    in.locker,
		Cache:     in.cache,
		Events:    in.bus,
		Metrics:   metrics,
		Log:       log,
	}, services.PipelineConfig{
		Language:          s.Transcription.Language,
		STTModel:          s.Transcription.Provider,
		BootstrapQuestion: s.Podcast.BootstrapQuestion,
		ContextTurns:      s.Podcast.ContextTurns,
		ClosingTurns:      s.Podcast.ClosingTurns,
		SystemTurns:       s.Podcast.SystemTurns,
		MediaDir:          s.Server.MediaDir,
		WorkDir:           s.Server.WorkDir,
		TranscribeTimeout: s.Transcription.Timeout,
		LockTTL:           s.Redis.LockTTL,
		TranscriptTTL:     s.Redis.TranscriptTTL,
		MaxUploadBytes:    s.Server.MaxUploadMB << 20,
	})
}

func startQueue(ctx context.Context, s *config.Settings, log *logrus.Logger, in *infra, pipeline services.PipelineService) (workers.FinalizeQueue, error) {
	if in.redis {
		pool := &workers.FinalizeWorkerPool{
			Redis:      config.RedisClient,
			Pipeline:   pipeline,
			Events:     in.bus,
			NumWorkers: s.Redis.Workers,
			Logger:     log,
			Stream:     s.Redis.FinalizeStream,
			Group:      s.Redis.FinalizeGroup,
			ClaimIdle:  s.Redis.LockTTL,
		}
		return pool, pool.Start(ctx)
	}
	q := &workers.LocalQueue{
		Pipeline:   pipeline,
		Events:     in.bus,
		NumWorkers: s.Redis.Workers,
		Logger:     log,
	}
	if err := q.Start(ctx); err != nil {
		return nil, fmt.Errorf("local finalize queue: %w", err)
	}
	return q, nil
}
