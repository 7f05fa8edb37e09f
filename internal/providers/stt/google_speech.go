package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

var _ Provider = (*GoogleSpeech)(nil)

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// Transcribe uses long-running recognition since podcast sources run far
// past the synchronous one-minute limit. Results are joined in order.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	op, err := g.c.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               bcp47(language),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return "", 0, err
	}
	text, conf := joinResults(resp.GetResults())
	return text, conf, nil
}

// joinResults takes the top alternative of every result and averages
// their confidences.
func joinResults(results []*speechpb.SpeechRecognitionResult) (string, float64) {
	var parts []string
	var sum float64
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 || strings.TrimSpace(alts[0].GetTranscript()) == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		sum += float64(alts[0].GetConfidence())
	}
	if len(parts) == 0 {
		return "", 0
	}
	return strings.Join(parts, " "), sum / float64(len(parts))
}

// bcp47 expands the short hints used elsewhere ("th") into the region
// tagged codes Cloud Speech expects.
func bcp47(language string) string {
	switch strings.ToLower(language) {
	case "":
		return "en-US"
	case "th":
		return "th-TH"
	case "en":
		return "en-US"
	case "id":
		return "id-ID"
	case "ja":
		return "ja-JP"
	}
	return language
}
