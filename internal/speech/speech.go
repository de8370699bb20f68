// Package speech runs the text-to-speech pipeline.
//
// A request is validated locally, sent to the synthesizer as a single
// prompt, and the base64 PCM payload of the answer is decoded, materialized
// and encoded as a WAV file that is kept in the audio object store.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/muryar/internal/audio"
	"github.com/nadzzz/muryar/internal/catalog"
	"github.com/nadzzz/muryar/internal/message"
	"github.com/nadzzz/muryar/internal/objectstore"
	"github.com/nadzzz/muryar/internal/session"
	"github.com/nadzzz/muryar/internal/tts"
)

// Options configures an Orchestrator.
type Options struct {
	// AppName prefixes download file names.
	AppName string

	// SampleRate and Channels describe the PCM payload when the response
	// does not name a rate.
	SampleRate int
	Channels   int
}

// Request is one synthesis request.
type Request struct {
	Text     string
	Language string
	Voice    string
}

// Result is a finished synthesis.
type Result struct {
	Object     *objectstore.Object
	SampleRate int
	Channels   int
	Frames     int
	Duration   time.Duration
}

// WAV returns the encoded file.
func (r *Result) WAV() []byte { return r.Object.Data }

// Orchestrator ties the synthesizer, the session store and the audio
// object store together.
type Orchestrator struct {
	synth    tts.Synthesizer
	sessions *session.Store
	objects  *objectstore.Store
	opts     Options
}

// New creates an Orchestrator.
func New(synth tts.Synthesizer, sessions *session.Store, objects *objectstore.Store, opts Options) *Orchestrator {
	if opts.AppName == "" {
		opts.AppName = "muryar-ai"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = audio.DefaultChannels
	}
	return &Orchestrator{synth: synth, sessions: sessions, objects: objects, opts: opts}
}

// BuildPrompt returns the instruction sent to the model.
func BuildPrompt(language, text string) string {
	return fmt.Sprintf("Speak the following text in %s: %s", language, text)
}

// FileName returns the download name of a generated file.
func FileName(app, language, voice string) string {
	return fmt.Sprintf("%s-%s-%s.wav", app, language, voice)
}

// Synthesize validates req, runs the pipeline and stores the WAV file.
// The stored object is owned by the object store TTL.
func (o *Orchestrator) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if err := catalog.Validate(req.Text, req.Language, req.Voice); err != nil {
		return nil, err
	}
	return o.render(ctx, req, o.objects.Put)
}

// render runs an already validated request and stores the WAV file with put.
func (o *Orchestrator) render(ctx context.Context, req Request, put func(data []byte, fileName, contentType string) *objectstore.Object) (*Result, error) {
	lang, _ := catalog.LookupLanguage(req.Language)
	prompt := BuildPrompt(lang.Name, catalog.Normalize(req.Text))

	start := time.Now()
	res, err := o.synth.Synthesize(ctx, prompt, tts.SynthesizeOpts{Language: lang.Name, Voice: req.Voice})
	if err != nil {
		return nil, fmt.Errorf("synthesizing with %s: %w", o.synth.Name(), err)
	}
	if res == nil || res.Data == "" {
		return nil, tts.ErrNoAudioData
	}

	raw, err := audio.DecodeBase64(res.Data)
	if err != nil {
		return nil, err
	}

	rate := res.SampleRate
	if rate <= 0 {
		rate = o.opts.SampleRate
	}
	buf, err := audio.Materialize(raw, rate, o.opts.Channels)
	if err != nil {
		return nil, err
	}

	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		return nil, err
	}

	obj := put(wav, FileName(o.opts.AppName, req.Language, req.Voice), audio.ContentType)
	slog.Info("speech synthesized",
		"language", req.Language,
		"voice", req.Voice,
		"object_id", obj.ID,
		"sample_rate", buf.SampleRate,
		"duration", buf.Duration(),
		"wav_bytes", len(wav),
		"elapsed", time.Since(start))

	return &Result{
		Object:     obj,
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		Frames:     buf.Frames(),
		Duration:   buf.Duration(),
	}, nil
}

// Generate runs the pipeline for the current state of a session.
//
// A validation failure is recorded on the session without a remote call.
// Only one generation per session may be in flight; a concurrent call
// returns session.ErrInFlight. The returned state is the one stored after
// the attempt, and the error is the cause of a failed attempt.
func (o *Orchestrator) Generate(ctx context.Context, id string) (session.State, error) {
	logger := slog.With("session_id", id)

	st, err := o.sessions.Update(id, func(cur session.State) (session.State, error) {
		if cur.Generating {
			return cur, session.ErrInFlight
		}
		if err := catalog.Validate(cur.Text, cur.Language, cur.Voice); err != nil {
			return cur.FailGeneration(UserMessage(err)), err
		}
		return cur.BeginGeneration()
	})
	if err != nil {
		logger.Debug("generation not started", "error", err)
		return st, err
	}

	logger.Info("generation started", "language", st.Language, "voice", st.Voice, "words", st.WordCount())
	// the session owns the audio, so it lives as long as the session refers to it
	res, genErr := o.render(ctx, Request{Text: st.Text, Language: st.Language, Voice: st.Voice}, o.objects.PutOwned)
	if genErr != nil {
		logger.Error("generation failed", "error", genErr)
		st, err = o.sessions.Update(id, func(cur session.State) (session.State, error) {
			return cur.FailGeneration(UserMessage(genErr)), nil
		})
		if err != nil {
			return st, err
		}
		return st, genErr
	}

	ref := session.AudioRef{ObjectID: res.Object.ID, URL: res.Object.URL(), FileName: res.Object.FileName}
	st, err = o.sessions.Update(id, func(cur session.State) (session.State, error) {
		return cur.CompleteGeneration(ref), nil
	})
	if err != nil {
		// the session ended while the model was speaking
		o.objects.Release(res.Object.ID)
		return st, err
	}
	logger.Info("generation complete", "object_id", res.Object.ID)
	return st, nil
}

// Catalog returns the languages and voices clients may choose from.
func (o *Orchestrator) Catalog() message.Catalog { return message.NewCatalog() }

// CreateSession starts a session in its initial state.
func (o *Orchestrator) CreateSession() (string, session.State) { return o.sessions.Create() }

// Session returns the current state of a session.
func (o *Orchestrator) Session(id string) (session.State, error) { return o.sessions.Get(id) }

// UpdateSession applies u to a session. Nothing is changed when any field
// is rejected.
func (o *Orchestrator) UpdateSession(id string, u message.SessionUpdate) (session.State, error) {
	return o.sessions.Update(id, func(cur session.State) (session.State, error) {
		next := cur
		var err error
		if u.Text != nil {
			next = next.SetText(*u.Text)
		}
		if u.Language != nil {
			if next, err = next.SetLanguage(*u.Language); err != nil {
				return cur, err
			}
		}
		if u.Voice != nil {
			if next, err = next.SetVoice(*u.Voice); err != nil {
				return cur, err
			}
		}
		return next, nil
	})
}

// DeleteSession ends a session and releases its audio.
func (o *Orchestrator) DeleteSession(id string) error { return o.sessions.Delete(id) }

// Audio returns a stored audio object.
func (o *Orchestrator) Audio(id string) (*objectstore.Object, bool) { return o.objects.Get(id) }

// ReleaseAudio frees a stored audio object.
func (o *Orchestrator) ReleaseAudio(id string) bool { return o.objects.Release(id) }

// Ready reports whether the synthesizer can be reached at all.
func (o *Orchestrator) Ready() error {
	if c, ok := o.synth.(interface{ Configured() bool }); ok && !c.Configured() {
		return tts.ErrMissingAPIKey
	}
	return nil
}
