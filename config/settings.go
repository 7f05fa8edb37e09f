package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the application configuration. Values come from defaults, then
// an optional YAML file (PODCASTER_CONFIG), then environment variables.
type Settings struct {
	Server        ServerSettings        `yaml:"server"`
	Store         StoreSettings         `yaml:"store"`
	Transcription TranscriptionSettings `yaml:"transcription"`
	LLM           LLMSettings           `yaml:"llm"`
	Voice         VoiceSettings         `yaml:"voice"`
	Podcast       PodcastSettings       `yaml:"podcast"`
	Publish       PublishSettings       `yaml:"publish"`
	Redis         RedisSettings         `yaml:"redis"`
}

type ServerSettings struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"log_level"`
	DownloadDir   string `yaml:"download_dir"`
	MediaDir      string `yaml:"media_dir"`
	WorkDir       string `yaml:"work_dir"`
	MaxUploadMB   int64  `yaml:"max_upload_mb"`
	MetricsEnable bool   `yaml:"metrics"`
}

type StoreSettings struct {
	// Driver is one of postgres, mongo, memory.
	Driver      string `yaml:"driver"`
	PostgresURI string `yaml:"postgres_uri"`
	MaxConns    int    `yaml:"max_conns"`
	MongoURI    string `yaml:"mongo_uri"`
	MongoDB     string `yaml:"mongo_db"`
	MongoTLS12  bool   `yaml:"mongo_tls12"`
}

type TranscriptionSettings struct {
	// Provider is one of http, google, openai.
	Provider string        `yaml:"provider"`
	Endpoint string        `yaml:"endpoint"`
	Language string        `yaml:"language"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type LLMSettings struct {
	// Provider is one of openai, vertex.
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	FastModel   string        `yaml:"fast_model"`
	ProjectID   string        `yaml:"project_id"`
	Location    string        `yaml:"location"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type VoiceSettings struct {
	// Provider is one of http, openai.
	Provider    string        `yaml:"provider"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	VoiceA      string        `yaml:"voice_a"`
	VoiceB      string        `yaml:"voice_b"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

type PodcastSettings struct {
	HostA             string        `yaml:"host_a"`
	HostB             string        `yaml:"host_b"`
	ContextTurns      int           `yaml:"context_turns"`
	ClosingTurns      int           `yaml:"closing_turns"`
	SystemTurns       int           `yaml:"system_turns"`
	Gap               time.Duration `yaml:"gap"`
	BootstrapQuestion string        `yaml:"bootstrap_question"`
	GreetingPhrases   []string      `yaml:"greeting_phrases"`
}

type PublishSettings struct {
	// GCSBucket switches final audio publishing from the local media dir to GCS.
	GCSBucket string `yaml:"gcs_bucket"`
	MediaURL  string `yaml:"media_url"`
}

type RedisSettings struct {
	LockTTL        time.Duration `yaml:"lock_ttl"`
	TranscriptTTL  time.Duration `yaml:"transcript_ttl"`
	FinalizeStream string        `yaml:"finalize_stream"`
	FinalizeGroup  string        `yaml:"finalize_group"`
	Workers        int           `yaml:"workers"`
}

// Defaults match the production deployment.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Port:          "8001",
			LogLevel:      "info",
			DownloadDir:   "downloads",
			MediaDir:      "downloads",
			WorkDir:       "downloads/audio_lines",
			MaxUploadMB:   1000,
			MetricsEnable: true,
		},
		Store: StoreSettings{Driver: "postgres", MaxConns: 25, MongoDB: "podcaster"},
		Transcription: TranscriptionSettings{
			Provider: "http",
			Language: "th",
			Model:    "whisper-1",
			Timeout:  10 * time.Minute,
		},
		LLM: LLMSettings{
			Provider:    "openai",
			Model:       "gpt-4o",
			FastModel:   "gpt-4o-mini",
			Location:    "us-central1",
			Temperature: 0.8,
			Timeout:     2 * time.Minute,
		},
		Voice: VoiceSettings{
			Provider:    "http",
			Model:       "tts-1",
			VoiceA:      "543",
			VoiceB:      "544",
			Concurrency: 8,
			Timeout:     time.Minute,
		},
		Podcast: PodcastSettings{
			HostA:             "Ava",
			HostB:             "Sompong",
			ContextTurns:      8,
			ClosingTurns:      20,
			SystemTurns:       6,
			Gap:               300 * time.Millisecond,
			BootstrapQuestion: "Where should we start?",
		},
		Publish: PublishSettings{MediaURL: "/media"},
		Redis: RedisSettings{
			LockTTL:        15 * time.Minute,
			TranscriptTTL:  7 * 24 * time.Hour,
			FinalizeStream: "podcast:finalize",
			FinalizeGroup:  "finalize-workers",
			Workers:        2,
		},
	}
}

// LoadSettings reads .env (if present), the YAML file named by
// PODCASTER_CONFIG (if set) and the environment, then validates the result.
func LoadSettings() (*Settings, error) {
	_ = godotenv.Load()

	s := Defaults()
	if path := os.Getenv("PODCASTER_CONFIG"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decodeYAML(f, &s); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := applyEnv(&s, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeYAML(r io.Reader, s *Settings) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(s *Settings, lookup lookupFunc) error {
	var errs []error

	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str(&s.Server.Port, "PORT")
	str(&s.Server.LogLevel, "LOG_LEVEL")
	str(&s.Server.DownloadDir, "DOWNLOAD_DIR")
	str(&s.Server.MediaDir, "MEDIA_DIR")
	str(&s.Server.WorkDir, "AUDIO_LINE_DIR")
	if v, ok := lookup("MAX_UPLOAD_MB"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB: %w", err))
		} else {
			s.Server.MaxUploadMB = n
		}
	}
	if v, ok := lookup("METRICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("METRICS_ENABLED: %w", err))
		} else {
			s.Server.MetricsEnable = b
		}
	}

	str(&s.Store.Driver, "STORE_DRIVER")
	str(&s.Store.PostgresURI, "POSTGRES_URI")
	num(&s.Store.MaxConns, "POSTGRES_MAX_CONNS")
	str(&s.Store.MongoURI, "MONGO_URI")
	str(&s.Store.MongoDB, "MONGO_DB")
	if v, ok := lookup("MONGO_TLS12"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MONGO_TLS12: %w", err))
		} else {
			s.Store.MongoTLS12 = b
		}
	}

	str(&s.Transcription.Provider, "TRANSCRIBE_PROVIDER")
	str(&s.Transcription.Endpoint, "TRANSCRIBE_AUDIO_ENDPOINT")
	str(&s.Transcription.Language, "TRANSCRIBE_LANGUAGE")
	str(&s.Transcription.Model, "TRANSCRIBE_MODEL")
	dur(&s.Transcription.Timeout, "TRANSCRIBE_TIMEOUT")

	str(&s.LLM.Provider, "LLM_PROVIDER")
	str(&s.LLM.APIKey, "OPENAI_API_KEY", "GPT_TOKEN")
	str(&s.LLM.BaseURL, "OPENAI_BASE_URL")
	str(&s.LLM.Model, "LLM_MODEL")
	str(&s.LLM.FastModel, "LLM_FAST_MODEL")
	str(&s.LLM.ProjectID, "GOOGLE_CLOUD_PROJECT")
	str(&s.LLM.Location, "VERTEX_LOCATION")
	dur(&s.LLM.Timeout, "LLM_TIMEOUT")

	str(&s.Voice.Provider, "VOICE_PROVIDER")
	str(&s.Voice.Endpoint, "VOICE_ENDPOINT", "BOTNOI_VOICE_ENDPOINT")
	str(&s.Voice.Model, "VOICE_MODEL")
	str(&s.Voice.VoiceA, "VOICE_ID_A")
	str(&s.Voice.VoiceB, "VOICE_ID_B")
	num(&s.Voice.Concurrency, "VOICE_CONCURRENCY")
	dur(&s.Voice.Timeout, "VOICE_TIMEOUT")

	str(&s.Podcast.HostA, "HOST_A_NAME")
	str(&s.Podcast.HostB, "HOST_B_NAME")

	str(&s.Publish.GCSBucket, "GCS_BUCKET")
	str(&s.Publish.MediaURL, "MEDIA_URL")

	num(&s.Redis.Workers, "FINALIZE_WORKERS")
	dur(&s.Redis.LockTTL, "SESSION_LOCK_TTL")

	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (s *Settings) Validate() error {
	var errs []error

	oneOf := func(field, v string, allowed ...string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s %q is invalid; valid values: %s", field, v, strings.Join(allowed, ", ")))
	}

	oneOf("store.driver", s.Store.Driver, "postgres", "mongo", "memory")
	if s.Store.Driver == "postgres" && s.Store.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("store.max_conns must be > 0, got %d", s.Store.MaxConns))
	}
	oneOf("transcription.provider", s.Transcription.Provider, "http", "google", "openai")
	oneOf("llm.provider", s.LLM.Provider, "openai", "vertex")
	oneOf("voice.provider", s.Voice.Provider, "http", "openai")

	if s.Transcription.Provider == "http" && s.Transcription.Endpoint == "" {
		errs = append(errs, errors.New("transcription.endpoint is required for the http provider (TRANSCRIBE_AUDIO_ENDPOINT)"))
	}
	if s.Voice.Provider == "http" && s.Voice.Endpoint == "" {
		errs = append(errs, errors.New("voice.endpoint is required for the http provider (VOICE_ENDPOINT)"))
	}
	needsOpenAIKey := s.LLM.Provider == "openai" || s.Transcription.Provider == "openai" || s.Voice.Provider == "openai"
	if needsOpenAIKey && s.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required when an openai provider is selected (OPENAI_API_KEY)"))
	}
	if s.LLM.Provider == "vertex" && s.LLM.ProjectID == "" {
		errs = append(errs, errors.New("llm.project_id is required for the vertex provider (GOOGLE_CLOUD_PROJECT)"))
	}
	if s.LLM.Model == "" || s.LLM.FastModel == "" {
		errs = append(errs, errors.New("llm.model and llm.fast_model must be set"))
	}
	if s.Voice.VoiceA == "" || s.Voice.VoiceB == "" {
		errs = append(errs, errors.New("voice.voice_a and voice.voice_b must be set"))
	}
	if s.Voice.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("voice.concurrency must be > 0, got %d", s.Voice.Concurrency))
	}
	if s.Podcast.ContextTurns <= 0 || s.Podcast.ClosingTurns <= 0 || s.Podcast.SystemTurns <= 0 {
		errs = append(errs, errors.New("podcast context_turns, closing_turns and system_turns must be > 0"))
	}
	if s.Podcast.Gap < 0 {
		errs = append(errs, errors.New("podcast.gap must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"transcription.timeout": s.Transcription.Timeout,
		"llm.timeout":           s.LLM.Timeout,
		"voice.timeout":         s.Voice.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", name))
		}
	}
	if s.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("server.max_upload_mb must be > 0"))
	}

	return errors.Join(errs...)
}
