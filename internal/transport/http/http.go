// Package http implements the REST transport for muryar.
//
// It serves the catalog, stateless synthesis, session-aware generation and
// the generated audio objects, plus the Swagger UI. It is the transport
// used by browsers and curl.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/muryar/internal/audio"
	"github.com/nadzzz/muryar/internal/catalog"
	_ "github.com/nadzzz/muryar/internal/docs" // registers the swagger doc
	"github.com/nadzzz/muryar/internal/message"
	"github.com/nadzzz/muryar/internal/session"
	"github.com/nadzzz/muryar/internal/speech"
	"github.com/nadzzz/muryar/internal/transport"
	"github.com/nadzzz/muryar/internal/tts"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// maxBodyBytes bounds request bodies; 50000 words fit comfortably.
const maxBodyBytes = 8 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port    int
	service transport.Service
	server  *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int, service transport.Service) *Transport {
	return &Transport{port: port, service: service}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the routed API.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/catalog", t.handleCatalog)
	mux.HandleFunc("POST /api/synthesize", t.handleSynthesize)

	mux.HandleFunc("POST /api/sessions", t.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", t.handleGetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", t.handleUpdateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", t.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/generate", t.handleGenerate)

	mux.HandleFunc("GET /audio/{id}", t.handleGetAudio)
	mux.HandleFunc("DELETE /audio/{id}", t.handleReleaseAudio)

	// Swagger UI, served from the registered doc.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return logRequests(mux)
}

// Listen starts the HTTP server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// handleCatalog lists languages and voices.
//
// @Summary     List languages and voices
// @Tags        catalog
// @Produce     json
// @Success     200  {object}  message.Catalog
// @Router      /api/catalog [get]
func (t *Transport) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, t.service.Catalog())
}

// handleSynthesize runs one stateless synthesis.
//
// @Summary     Synthesize speech
// @Description Validates the text, asks the model for speech and returns a 16-bit PCM WAV file.
// @Description With "Accept: application/json" the file is returned base64-encoded inside a JSON body.
// @Tags        synthesize
// @Accept      json
// @Produce     audio/wav
// @Produce     json
// @Param       request  body      message.SynthesizeRequest  true  "Text, language and voice"
// @Success     200  {file}    binary                      "WAV file"
// @Success     200  {object}  message.SynthesizeResponse  "WAV file as JSON"
// @Failure     400  {object}  message.ErrorResponse  "Invalid request"
// @Failure     500  {object}  message.ErrorResponse  "API key is missing"
// @Failure     502  {object}  message.ErrorResponse  "Speech service failed"
// @Router      /api/synthesize [post]
func (t *Transport) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req message.SynthesizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req = req.WithDefaults()

	res, err := t.service.Synthesize(r.Context(), speech.Request{Text: req.Text, Language: req.Language, Voice: req.Voice})
	if err != nil {
		writeError(w, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, transport.SynthesizeResponse(res, true))
		return
	}

	w.Header().Set("Content-Location", res.Object.URL())
	w.Header().Set("X-Audio-Duration-Ms", strconv.FormatInt(res.Duration.Milliseconds(), 10))
	writeAudio(w, r, res.Object.Data, res.Object.FileName, res.Object.CreatedAt, true)
}

// handleCreateSession starts a session.
//
// @Summary     Create a session
// @Tags        sessions
// @Produce     json
// @Success     201  {object}  message.Session
// @Router      /api/sessions [post]
func (t *Transport) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, st := t.service.CreateSession()
	w.Header().Set("Location", "/api/sessions/"+id)
	writeJSON(w, http.StatusCreated, message.NewSession(id, st))
}

// handleGetSession returns a session.
//
// @Summary     Get a session
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  message.Session
// @Failure     404  {object}  message.ErrorResponse
// @Router      /api/sessions/{id} [get]
func (t *Transport) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := t.service.Session(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.NewSession(id, st))
}

// handleUpdateSession edits the text, language or voice of a session.
//
// @Summary     Update a session
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       id      path      string                 true  "Session ID"
// @Param       update  body      message.SessionUpdate  true  "Fields to change"
// @Success     200  {object}  message.Session
// @Failure     400  {object}  message.ErrorResponse
// @Failure     404  {object}  message.ErrorResponse
// @Router      /api/sessions/{id} [patch]
func (t *Transport) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var u message.SessionUpdate
	if !decodeJSON(w, r, &u) {
		return
	}
	id := r.PathValue("id")
	st, err := t.service.UpdateSession(id, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.NewSession(id, st))
}

// handleDeleteSession ends a session and releases its audio.
//
// @Summary     Delete a session
// @Tags        sessions
// @Param       id   path  string  true  "Session ID"
// @Success     204
// @Failure     404  {object}  message.ErrorResponse
// @Router      /api/sessions/{id} [delete]
func (t *Transport) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := t.service.DeleteSession(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerate generates speech for the current session state.
//
// @Summary     Generate speech for a session
// @Description Blocks until the audio is ready. The session's previous audio is released.
// @Tags        sessions
// @Produce     json
// @Param       id   path      string  true  "Session ID"
// @Success     200  {object}  message.Session
// @Failure     400  {object}  message.ErrorResponse  "Invalid text, language or voice"
// @Failure     404  {object}  message.ErrorResponse  "Unknown session"
// @Failure     409  {object}  message.ErrorResponse  "Generation already in progress"
// @Failure     500  {object}  message.ErrorResponse  "API key is missing"
// @Failure     502  {object}  message.ErrorResponse  "Speech service failed"
// @Router      /api/sessions/{id}/generate [post]
func (t *Transport) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, err := t.service.Generate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, message.NewSession(id, st))
}

// handleGetAudio serves a generated WAV file.
//
// @Summary     Download audio
// @Tags        audio
// @Produce     audio/wav
// @Param       id        path   string  true   "Audio ID"
// @Param       download  query  bool    false  "Send as an attachment"
// @Success     200  {file}    binary
// @Failure     404  {object}  message.ErrorResponse
// @Router      /audio/{id} [get]
func (t *Transport) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	obj, ok := t.service.Audio(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, message.ErrorResponse{Error: "not_found", Message: "Audio not found."})
		return
	}
	download, _ := strconv.ParseBool(r.URL.Query().Get("download"))
	writeAudio(w, r, obj.Data, obj.FileName, obj.CreatedAt, download)
}

// handleReleaseAudio frees a generated WAV file.
//
// @Summary     Release audio
// @Tags        audio
// @Param       id   path  string  true  "Audio ID"
// @Success     204
// @Router      /audio/{id} [delete]
func (t *Transport) handleReleaseAudio(w http.ResponseWriter, r *http.Request) {
	t.service.ReleaseAudio(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, message.ErrorResponse{Error: "bad_request", Message: "invalid json: " + err.Error()})
		return false
	}
	return true
}

// wantsJSON reports whether the Accept header asks for JSON before it
// asks for WAV. Media ranges are taken in listed order.
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case "application/json":
			return true
		case audio.ContentType, "audio/*":
			return false
		}
	}
	return false
}

func writeAudio(w http.ResponseWriter, r *http.Request, data []byte, fileName string, modTime time.Time, attachment bool) {
	w.Header().Set("Content-Type", audio.ContentType)
	if attachment {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	}
	http.ServeContent(w, r, fileName, modTime, bytes.NewReader(data))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, message.ErrorResponse{Error: code, Message: speech.UserMessage(err)})
}

// statusFor maps a service error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	var remote *tts.RemoteError
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, tts.ErrMissingAPIKey):
		return http.StatusInternalServerError, "config"
	case errors.As(err, &remote), errors.Is(err, tts.ErrNoAudioData),
		errors.Is(err, audio.ErrDecode), errors.Is(err, audio.ErrMaterialize):
		return http.StatusBadGateway, "remote"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
