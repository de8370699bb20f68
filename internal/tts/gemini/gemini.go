// Package gemini implements the TTS Synthesizer using the Gemini
// generateContent REST API with an audio response modality.
//
// Request:
//
//	POST {base_url}/v1beta/models/{model}:generateContent
//	x-goog-api-key: <key>
//	{"contents":[{"parts":[{"text":"..."}]}],
//	 "generationConfig":{"responseModalities":["AUDIO"],
//	   "speechConfig":{"voiceConfig":{"prebuiltVoiceConfig":{"voiceName":"Kore"}}}}}
//
// The response carries the audio as base64 raw PCM in
// candidates[0].content.parts[i].inlineData.data.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"golang.org/x/time/rate"

	"github.com/nadzzz/muryar/internal/config"
	"github.com/nadzzz/muryar/internal/tts"
)

// maxResponseBytes bounds the response body. Base64 PCM at 24 kHz grows by
// roughly 64 KB per second of speech.
const maxResponseBytes = 1 << 30

// Synthesizer implements tts.Synthesizer against the Gemini API.
type Synthesizer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter // nil when pacing is disabled
}

// New creates a new Gemini synthesizer from config.
func New(cfg config.GeminiConfig) *Synthesizer {
	s := &Synthesizer{
		apiKey:  cfg.APIKey,
		model:   strings.TrimPrefix(cfg.Model, "models/"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return s
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "gemini" }

// Configured reports whether an API key is set.
func (s *Synthesizer) Configured() bool { return s.apiKey != "" }

// Synthesize sends the prompt to the model and returns the first audio
// payload of the response. It never retries.
func (s *Synthesizer) Synthesize(ctx context.Context, prompt string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if s.apiKey == "" {
		return nil, tts.ErrMissingAPIKey
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &tts.RemoteError{Err: fmt.Errorf("waiting for request slot: %w", err)}
		}
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: opts.Voice},
				},
			},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshalling generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("x-goog-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("gemini synthesize", "model", s.model, "voice", opts.Voice, "language", opts.Language, "prompt_length", len(prompt))

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &tts.RemoteError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.RemoteError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &tts.RemoteError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	data, mimeType, err := extractAudio(respBody)
	if err != nil {
		return nil, err
	}

	slog.Debug("gemini synthesize complete", "duration", time.Since(start), "payload_bytes", len(data), "mime_type", mimeType)
	return &tts.SynthesizeResult{
		Data:       data,
		MIMEType:   mimeType,
		SampleRate: tts.SampleRateFromMIME(mimeType),
	}, nil
}

// Close drops the idle connections of the HTTP client.
func (s *Synthesizer) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// --- Wire types and helpers ---

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// extractAudio returns the first inline audio payload of the first candidate.
func extractAudio(body []byte) (data, mimeType string, err error) {
	parts, dataType, _, err := jsonparser.Get(body, "candidates", "[0]", "content", "parts")
	if err != nil {
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			return "", "", tts.ErrNoAudioData
		}
		return "", "", fmt.Errorf("%w: %v", tts.ErrNoAudioData, err)
	}
	if dataType != jsonparser.Array {
		return "", "", tts.ErrNoAudioData
	}

	_, err = jsonparser.ArrayEach(parts, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if data != "" {
			return
		}
		d, derr := jsonparser.GetString(value, "inlineData", "data")
		if derr != nil || d == "" {
			return
		}
		data = d
		mimeType, _ = jsonparser.GetString(value, "inlineData", "mimeType")
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", tts.ErrNoAudioData, err)
	}
	if data == "" {
		return "", "", tts.ErrNoAudioData
	}
	return data, mimeType, nil
}

// errorMessage pulls error.message out of a Google API error body.
func errorMessage(body []byte) string {
	if msg, err := jsonparser.GetString(body, "error", "message"); err == nil {
		return msg
	}
	return strings.TrimSpace(string(body))
}
