// Package message defines the request and response bodies shared by the
// muryar transports.
package message

import (
	"github.com/nadzzz/muryar/internal/catalog"
	"github.com/nadzzz/muryar/internal/session"
)

// SynthesizeRequest asks for one piece of speech.
type SynthesizeRequest struct {
	// Text is the text to speak, at most catalog.MaxWords words.
	Text string `json:"text" example:"Sannu da zuwa"`

	// Language is a catalog language ID (e.g., "Hausa"). Defaults to Hausa.
	Language string `json:"language,omitempty" example:"Hausa"`

	// Voice is a catalog voice ID (e.g., "Kore"). Defaults to Algenib.
	Voice string `json:"voice,omitempty" example:"Algenib"`
}

// WithDefaults fills in the default language and voice.
func (r SynthesizeRequest) WithDefaults() SynthesizeRequest {
	if r.Language == "" {
		r.Language = catalog.DefaultLanguage
	}
	if r.Voice == "" {
		r.Voice = catalog.DefaultVoice
	}
	return r
}

// SynthesizeResponse carries a finished WAV file. Audio is base64 in JSON.
type SynthesizeResponse struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	DurationMS  int64  `json:"duration_ms"`
	Audio       []byte `json:"audio,omitempty"`
}

// SessionUpdate edits a session. Nil fields are left unchanged.
type SessionUpdate struct {
	Text     *string `json:"text,omitempty"`
	Language *string `json:"language,omitempty"`
	Voice    *string `json:"voice,omitempty"`
}

// AudioResult references the audio of a finished generation.
type AudioResult struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

// Session is the client view of a session.
type Session struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Language    string       `json:"language"`
	Voice       string       `json:"voice"`
	WordCount   int          `json:"word_count"`
	MaxWords    int          `json:"max_words"`
	Generating  bool         `json:"generating"`
	CanGenerate bool         `json:"can_generate"`
	Audio       *AudioResult `json:"audio,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// NewSession renders st as seen by clients.
func NewSession(id string, st session.State) Session {
	s := Session{
		ID:          id,
		Text:        st.Text,
		Language:    st.Language,
		Voice:       st.Voice,
		WordCount:   st.WordCount(),
		MaxWords:    catalog.MaxWords,
		Generating:  st.Generating,
		CanGenerate: st.CanGenerate(),
		Error:       st.Error,
	}
	if st.Audio != nil {
		s.Audio = &AudioResult{ID: st.Audio.ObjectID, URL: st.Audio.URL, FileName: st.Audio.FileName}
	}
	return s
}

// Catalog lists what a client may choose from.
type Catalog struct {
	Languages       []catalog.Language `json:"languages"`
	Voices          []catalog.Voice    `json:"voices"`
	MaxWords        int                `json:"max_words"`
	DefaultLanguage string             `json:"default_language"`
	DefaultVoice    string             `json:"default_voice"`
}

// NewCatalog returns the full catalog.
func NewCatalog() Catalog {
	return Catalog{
		Languages:       catalog.Languages(),
		Voices:          catalog.Voices(),
		MaxWords:        catalog.MaxWords,
		DefaultLanguage: catalog.DefaultLanguage,
		DefaultVoice:    catalog.DefaultVoice,
	}
}

// ErrorResponse is the body of every failed API call. Message is the
// user-facing text.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
