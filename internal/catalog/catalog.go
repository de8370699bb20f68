// Package catalog holds the fixed set of languages and prebuilt voices
// offered to users, and the local checks applied to input text before any
// remote request is made.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxWords is the largest accepted number of whitespace-delimited words.
const MaxWords = 50000

const (
	// DefaultLanguage is selected for new sessions.
	DefaultLanguage = "Hausa"

	// DefaultVoice is selected for new sessions.
	DefaultVoice = "Algenib"
)

// Gender tags a prebuilt voice.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Language is a language the speech model is asked to speak in.
type Language struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
	Flag       string `json:"flag"`
}

// Voice is one of the model's prebuilt voices.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
	Icon   string `json:"icon"`
}

var languages = []Language{
	{ID: "Hausa", Name: "Hausa", NativeName: "Harshen Hausa", Flag: "🇳🇬"},
	{ID: "Yoruba", Name: "Yoruba", NativeName: "Èdè Yorùbá", Flag: "🇳🇬"},
	{ID: "Igbo", Name: "Igbo", NativeName: "Asụsụ Igbo", Flag: "🇳🇬"},
	{ID: "English", Name: "English", NativeName: "English Language", Flag: "🇺🇸"},
	{ID: "Arabic", Name: "Arabic", NativeName: "العربية", Flag: "🇸🇦"},
}

var voices = []Voice{
	{ID: "Algenib", Name: "Algenib", Gender: Male, Icon: "♂️"},
	{ID: "Puck", Name: "Puck", Gender: Male, Icon: "♂️"},
	{ID: "Charon", Name: "Charon", Gender: Male, Icon: "♂️"},
	{ID: "Kore", Name: "Kore", Gender: Female, Icon: "♀️"},
	{ID: "Fenrir", Name: "Fenrir", Gender: Female, Icon: "♀️"},
	{ID: "Zephyr", Name: "Zephyr", Gender: Female, Icon: "♀️"},
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Voices returns the supported voices in display order.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// LookupLanguage finds a language by ID.
func LookupLanguage(id string) (Language, bool) {
	for _, l := range languages {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}

// LookupVoice finds a voice by ID.
func LookupVoice(id string) (Voice, bool) {
	for _, v := range voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// ErrValidation matches every error returned by Validate.
var ErrValidation = errors.New("validation failed")

// ValidationError is a local input problem. Message is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// Is reports ErrValidation as matching every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrEmptyText       = &ValidationError{Field: "text", Message: "Please enter some text."}
	ErrWordLimit       = &ValidationError{Field: "text", Message: fmt.Sprintf("Word limit exceeded. Maximum is %d words.", MaxWords)}
	ErrUnknownLanguage = &ValidationError{Field: "language", Message: "Unsupported language."}
	ErrUnknownVoice    = &ValidationError{Field: "voice", Message: "Unsupported voice."}
)

// WordCount returns the number of whitespace-delimited words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Normalize trims text and converts it to Unicode NFC so that precomposed
// and combining diacritics reach the model in one form.
func Normalize(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// Validate checks a generation request locally.
func Validate(text, language, voice string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if WordCount(text) > MaxWords {
		return ErrWordLimit
	}
	if _, ok := LookupLanguage(language); !ok {
		return fmt.Errorf("%w %q", ErrUnknownLanguage, language)
	}
	if _, ok := LookupVoice(voice); !ok {
		return fmt.Errorf("%w %q", ErrUnknownVoice, voice)
	}
	return nil
}
