// Package tts defines the interface for remote text-to-speech synthesis.
//
// A Synthesizer sends one prompt to a speech model and returns the first
// audio payload of the response, still base64-encoded. Decoding and WAV
// packaging are done by the caller (see package audio).
package tts

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
)

var (
	// ErrMissingAPIKey is returned without any network call when no
	// credentials are configured.
	ErrMissingAPIKey = errors.New("tts: API key is missing")

	// ErrNoAudioData is returned when the response carries no audio payload.
	ErrNoAudioData = errors.New("tts: no audio data in response")
)

// RemoteError is a network or service failure talking to the speech model.
type RemoteError struct {
	// StatusCode is the HTTP status returned by the service, 0 if the
	// request never got a response.
	StatusCode int

	// Message is the service's own error description, if any.
	Message string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("tts: remote service returned %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("tts: remote service returned %d", e.StatusCode)
	case e.Err != nil:
		return "tts: remote service unreachable: " + e.Err.Error()
	default:
		return "tts: remote service failure"
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the display name of the requested language. It is already
	// part of the prompt and is passed along for logging.
	Language string

	// Voice is the prebuilt voice name (e.g., "Kore").
	Voice string
}

// SynthesizeResult holds the audio payload of a synthesis response.
type SynthesizeResult struct {
	// Data is the base64-encoded raw PCM audio.
	Data string

	// MIMEType is the payload type reported by the service
	// (e.g., "audio/L16;codec=pcm;rate=24000").
	MIMEType string

	// SampleRate is parsed from MIMEType, 0 if it names none.
	SampleRate int
}

// Synthesizer converts a prompt to speech.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "gemini").
	Name() string

	// Synthesize sends a single request and waits for the complete response.
	Synthesize(ctx context.Context, prompt string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SampleRateFromMIME extracts the rate parameter of a raw PCM MIME type,
// returning 0 when absent or malformed.
func SampleRateFromMIME(mimeType string) int {
	if mimeType == "" {
		return 0
	}
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return 0
	}
	return rate
}
