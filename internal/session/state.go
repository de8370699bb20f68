// Package session models the state of one user's text-to-speech form.
//
// State is an immutable value. It changes only through the transition
// methods below, each of which returns a new State, and is owned by Store.
package session

import (
	"errors"
	"strings"

	"github.com/nadzzz/muryar/internal/catalog"
)

var (
	// ErrInFlight is returned when a generation is started while another
	// one for the same session has not finished.
	ErrInFlight = errors.New("session: generation already in progress")

	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session: not found")
)

// AudioRef points at the audio object produced by the last generation.
type AudioRef struct {
	ObjectID string
	URL      string
	FileName string
}

// State is one session's form state.
type State struct {
	Text       string
	Language   string
	Voice      string
	Generating bool
	Audio      *AudioRef
	Error      string
}

// New returns the initial state with the default language and voice.
func New() State {
	return State{
		Language: catalog.DefaultLanguage,
		Voice:    catalog.DefaultVoice,
	}
}

// WordCount returns the number of words in the current text.
func (s State) WordCount() int { return catalog.WordCount(s.Text) }

// CanGenerate reports whether a generation may be started.
func (s State) CanGenerate() bool {
	return !s.Generating && strings.TrimSpace(s.Text) != ""
}

// SetText replaces the input text.
func (s State) SetText(text string) State {
	s.Text = text
	return s
}

// SetLanguage selects a language from the catalog.
func (s State) SetLanguage(id string) (State, error) {
	if _, ok := catalog.LookupLanguage(id); !ok {
		return s, catalog.ErrUnknownLanguage
	}
	s.Language = id
	return s, nil
}

// SetVoice selects a voice from the catalog.
func (s State) SetVoice(id string) (State, error) {
	if _, ok := catalog.LookupVoice(id); !ok {
		return s, catalog.ErrUnknownVoice
	}
	s.Voice = id
	return s, nil
}

// BeginGeneration marks a generation as in flight. The previous audio and
// error are cleared.
func (s State) BeginGeneration() (State, error) {
	if s.Generating {
		return s, ErrInFlight
	}
	s.Generating = true
	s.Audio = nil
	s.Error = ""
	return s, nil
}

// CompleteGeneration records the produced audio.
func (s State) CompleteGeneration(ref AudioRef) State {
	s.Generating = false
	s.Audio = &ref
	s.Error = ""
	return s
}

// FailGeneration records a user-facing error. Audio cleared by
// BeginGeneration stays cleared.
func (s State) FailGeneration(message string) State {
	s.Generating = false
	s.Error = message
	return s
}
