package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/muryar/internal/audio"
	"github.com/nadzzz/muryar/internal/catalog"
	"github.com/nadzzz/muryar/internal/message"
	"github.com/nadzzz/muryar/internal/objectstore"
	"github.com/nadzzz/muryar/internal/session"
	"github.com/nadzzz/muryar/internal/speech"
	"github.com/nadzzz/muryar/internal/tts"
)

type stubSynth struct {
	err error
}

func (s *stubSynth) Name() string { return "stub" }

func (s *stubSynth) Synthesize(ctx context.Context, prompt string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &tts.SynthesizeResult{Data: base64.StdEncoding.EncodeToString(make([]byte, 200))}, nil
}

func (s *stubSynth) Close() error { return nil }

func newServer(t *testing.T, synth tts.Synthesizer) *httptest.Server {
	t.Helper()
	objects := objectstore.New(time.Hour)
	sessions := session.NewStore(time.Hour, objects.Release)
	orch := speech.New(synth, sessions, objects, speech.Options{})
	srv := httptest.NewServer(New(0, orch).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, header ...string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCatalog(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	resp := do(t, http.MethodGet, srv.URL+"/api/catalog", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := decode[message.Catalog](t, resp)
	assert.Len(t, c.Languages, 5)
	assert.Len(t, c.Voices, 6)
	assert.Equal(t, "Hausa", c.DefaultLanguage)
}

func TestSynthesizeReturnsWAV(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	resp := do(t, http.MethodPost, srv.URL+"/api/synthesize", `{"text":"Hello world","language":"English","voice":"Kore"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=muryar-ai-English-Kore.wav", resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Location"), "/audio/"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, body, 244)
	assert.Equal(t, "RIFF", string(body[:4]))

	again := do(t, http.MethodGet, srv.URL+resp.Header.Get("Content-Location"), "")
	assert.Equal(t, http.StatusOK, again.StatusCode)
}

func TestSynthesizeDefaultsAndJSON(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	resp := do(t, http.MethodPost, srv.URL+"/api/synthesize", `{"text":"Sannu"}`, "Accept", "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[message.SynthesizeResponse](t, resp)
	assert.Equal(t, "muryar-ai-Hausa-Algenib.wav", out.FileName)
	assert.Equal(t, 24000, out.SampleRate)
	assert.Equal(t, 1, out.Channels)
	assert.Len(t, out.Audio, 244)
}

func TestSynthesizeErrors(t *testing.T) {
	cases := []struct {
		name    string
		synth   *stubSynth
		body    string
		status  int
		message string
	}{
		{"empty text", &stubSynth{}, `{"text":"  "}`, http.StatusBadRequest, "Please enter some text."},
		{"word limit", &stubSynth{}, fmt.Sprintf(`{"text":%q}`, strings.Repeat("w ", catalog.MaxWords+1)), http.StatusBadRequest, "Word limit exceeded. Maximum is 50000 words."},
		{"unknown voice", &stubSynth{}, `{"text":"hi","voice":"Siri"}`, http.StatusBadRequest, "Unsupported voice."},
		{"bad json", &stubSynth{}, `{"text":`, http.StatusBadRequest, ""},
		{"missing key", &stubSynth{err: tts.ErrMissingAPIKey}, `{"text":"hi"}`, http.StatusInternalServerError, "API key is missing."},
		{"remote", &stubSynth{err: &tts.RemoteError{StatusCode: 503}}, `{"text":"hi"}`, http.StatusBadGateway, "Failed to generate audio. Please try again later."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.synth)
			resp := do(t, http.MethodPost, srv.URL+"/api/synthesize", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			e := decode[message.ErrorResponse](t, resp)
			if tc.message != "" {
				assert.Equal(t, tc.message, e.Message)
			}
		})
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newServer(t, &stubSynth{})

	resp := do(t, http.MethodPost, srv.URL+"/api/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[message.Session](t, resp)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CanGenerate)
	base := srv.URL + "/api/sessions/" + created.ID

	resp = do(t, http.MethodPatch, base, `{"text":"Ina kwana","voice":"Puck"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[message.Session](t, resp)
	assert.Equal(t, 2, updated.WordCount)
	assert.True(t, updated.CanGenerate)

	resp = do(t, http.MethodPost, base+"/generate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	generated := decode[message.Session](t, resp)
	require.NotNil(t, generated.Audio)
	assert.Equal(t, "muryar-ai-Hausa-Puck.wav", generated.Audio.FileName)

	inline := do(t, http.MethodGet, srv.URL+generated.Audio.URL, "")
	require.Equal(t, http.StatusOK, inline.StatusCode)
	assert.Empty(t, inline.Header.Get("Content-Disposition"))
	assert.Equal(t, audio.ContentType, inline.Header.Get("Content-Type"))

	download := do(t, http.MethodGet, srv.URL+generated.Audio.URL+"?download=1", "")
	require.Equal(t, http.StatusOK, download.StatusCode)
	assert.Contains(t, download.Header.Get("Content-Disposition"), "muryar-ai-Hausa-Puck.wav")

	resp = do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	gone := do(t, http.MethodGet, srv.URL+generated.Audio.URL, "")
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)

	resp = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGenerateValidationError(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	created := decode[message.Session](t, do(t, http.MethodPost, srv.URL+"/api/sessions", ""))

	resp := do(t, http.MethodPost, srv.URL+"/api/sessions/"+created.ID+"/generate", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please enter some text.", decode[message.ErrorResponse](t, resp).Message)

	st := decode[message.Session](t, do(t, http.MethodGet, srv.URL+"/api/sessions/"+created.ID, ""))
	assert.Equal(t, "Please enter some text.", st.Error)
}

func TestUpdateSessionRejectsUnknownLanguage(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	created := decode[message.Session](t, do(t, http.MethodPost, srv.URL+"/api/sessions", ""))

	resp := do(t, http.MethodPatch, srv.URL+"/api/sessions/"+created.ID, `{"language":"Klingon"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported language.", decode[message.ErrorResponse](t, resp).Message)
}

func TestUnknownSession(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		resp := do(t, method, srv.URL+"/api/sessions/nope", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	resp := do(t, http.MethodPost, srv.URL+"/api/sessions/nope/generate", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Session not found.", decode[message.ErrorResponse](t, resp).Message)
}

func TestReleaseAudio(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	resp := do(t, http.MethodPost, srv.URL+"/api/synthesize", `{"text":"hi"}`)
	loc := resp.Header.Get("Content-Location")
	require.NotEmpty(t, loc)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+loc, "").StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+loc, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+loc, "").StatusCode)
}

func TestSwaggerDoc(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	resp := do(t, http.MethodGet, srv.URL+"/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/api/synthesize")
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{catalog.ErrEmptyText, http.StatusBadRequest, "validation"},
		{fmt.Errorf("wrapped: %w", session.ErrNotFound), http.StatusNotFound, "not_found"},
		{session.ErrInFlight, http.StatusConflict, "in_flight"},
		{tts.ErrMissingAPIKey, http.StatusInternalServerError, "config"},
		{&tts.RemoteError{StatusCode: 429}, http.StatusBadGateway, "remote"},
		{tts.ErrNoAudioData, http.StatusBadGateway, "remote"},
		{fmt.Errorf("x: %w", audio.ErrDecode), http.StatusBadGateway, "remote"},
		{errors.New("other"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := statusFor(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestWantsJSON(t *testing.T) {
	cases := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/json", true},
		{"application/json, text/plain, */*", true},
		{"text/plain;q=0.9, application/json;q=0.8", true},
		{"audio/wav, application/json", false},
		{"audio/*,application/json", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/api/synthesize", nil)
		if tc.accept != "" {
			r.Header.Set("Accept", tc.accept)
		}
		assert.Equal(t, tc.want, wantsJSON(r), tc.accept)
	}
}

func TestSynthesizeJSONWithAcceptList(t *testing.T) {
	srv := newServer(t, &stubSynth{})
	resp := do(t, http.MethodPost, srv.URL+"/api/synthesize", `{"text":"Sannu"}`, "Accept", "application/json, text/plain, */*")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Len(t, decode[message.SynthesizeResponse](t, resp).Audio, 244)
}
