// Package transport defines the interface for pluggable API transports.
//
// Each transport (HTTP, gRPC) exposes the same Service to a different kind
// of client. The service doesn't care how requests arrive.
package transport

import (
	"context"

	"github.com/nadzzz/muryar/internal/message"
	"github.com/nadzzz/muryar/internal/objectstore"
	"github.com/nadzzz/muryar/internal/session"
	"github.com/nadzzz/muryar/internal/speech"
)

// Service is what the transports expose. *speech.Orchestrator implements it.
type Service interface {
	Catalog() message.Catalog
	Synthesize(ctx context.Context, req speech.Request) (*speech.Result, error)

	CreateSession() (string, session.State)
	Session(id string) (session.State, error)
	UpdateSession(id string, u message.SessionUpdate) (session.State, error)
	DeleteSession(id string) error
	Generate(ctx context.Context, id string) (session.State, error)

	Audio(id string) (*objectstore.Object, bool)
	ReleaseAudio(id string) bool
}

var _ Service = (*speech.Orchestrator)(nil)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http").
	Name() string

	// Listen starts accepting requests and serves them from the service.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}

// SynthesizeResponse renders a synthesis result. Audio is included only
// when withAudio is set.
func SynthesizeResponse(res *speech.Result, withAudio bool) message.SynthesizeResponse {
	out := message.SynthesizeResponse{
		ID:          res.Object.ID,
		URL:         res.Object.URL(),
		FileName:    res.Object.FileName,
		ContentType: res.Object.ContentType,
		SampleRate:  res.SampleRate,
		Channels:    res.Channels,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if withAudio {
		out.Audio = res.Object.Data
	}
	return out
}
