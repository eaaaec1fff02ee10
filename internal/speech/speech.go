// Package speech relays recorded audio to Google Cloud Speech-to-Text.
package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"
)

// Encoding is the only audio encoding the relay accepts: 16-bit signed
// little-endian PCM.
const Encoding = "LINEAR16"

// ErrEmptyAudio is returned when there is nothing to transcribe.
var ErrEmptyAudio = errors.New("no audio received")

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) ([]Transcript, error)
}

// Transcript is the best alternative of one recognition result.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Config describes the audio the relay forwards.
type Config struct {
	LanguageCode    string
	SampleRateHertz int
}

// GoogleTranscriber implements Transcriber with the Speech v1 REST API.
type GoogleTranscriber struct {
	service *speechapi.Service
	config  Config
}

// NewGoogleTranscriber builds a client from explicit client options.
func NewGoogleTranscriber(ctx context.Context, cfg Config, opts ...option.ClientOption) (*GoogleTranscriber, error) {
	service, err := speechapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech service: %w", err)
	}
	return &GoogleTranscriber{service: service, config: cfg}, nil
}

// NewGoogleTranscriberFromFile loads a service account key from credentialsFile.
func NewGoogleTranscriberFromFile(ctx context.Context, cfg Config, credentialsFile string) (*GoogleTranscriber, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, speechapi.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return NewGoogleTranscriber(ctx, cfg, option.WithCredentials(creds))
}

// Transcribe sends audio in one synchronous recognize call.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte) ([]Transcript, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	req := &speechapi.RecognizeRequest{
		Config: &speechapi.RecognitionConfig{
			Encoding:        Encoding,
			SampleRateHertz: int64(g.config.SampleRateHertz),
			LanguageCode:    g.config.LanguageCode,
		},
		Audio: &speechapi.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := g.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	transcripts := make([]Transcript, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result == nil || len(result.Alternatives) == 0 {
			continue
		}
		best := result.Alternatives[0]
		text := strings.TrimSpace(best.Transcript)
		if text == "" {
			continue
		}
		transcripts = append(transcripts, Transcript{Text: text, Confidence: best.Confidence})
	}
	return transcripts, nil
}
