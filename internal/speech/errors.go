package speech

import (
	"errors"

	"github.com/nadzzz/muryar/internal/catalog"
	"github.com/nadzzz/muryar/internal/session"
	"github.com/nadzzz/muryar/internal/tts"
)

const (
	msgMissingKey = "API key is missing."
	msgInFlight   = "Audio generation is already in progress."
	msgNotFound   = "Session not found."
	msgGeneric    = "Failed to generate audio. Please try again later."
)

// UserMessage converts any pipeline error into the single line shown to
// users. Remote, decoding and encoding failures share one generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, tts.ErrMissingAPIKey):
		return msgMissingKey
	case errors.Is(err, session.ErrInFlight):
		return msgInFlight
	case errors.Is(err, session.ErrNotFound):
		return msgNotFound
	default:
		return msgGeneric
	}
}
