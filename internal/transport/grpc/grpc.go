// Package grpc implements the gRPC transport for muryar.
//
// The Speech service carries JSON-encoded messages (content subtype "json")
// so that no generated code is needed. It is the preferred transport for
// backend services that want a WAV file in a single call.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/muryar/internal/audio"
	"github.com/nadzzz/muryar/internal/catalog"
	"github.com/nadzzz/muryar/internal/message"
	"github.com/nadzzz/muryar/internal/speech"
	"github.com/nadzzz/muryar/internal/transport"
	"github.com/nadzzz/muryar/internal/tts"
)

const (
	// ServiceName is the fully qualified name of the speech service.
	ServiceName = "muryar.v1.Speech"

	synthesizeMethod = "/" + ServiceName + "/Synthesize"
)

// SpeechServer is the server API of the speech service.
type SpeechServer interface {
	Synthesize(ctx context.Context, req *message.SynthesizeRequest) (*message.SynthesizeResponse, error)
}

var speechServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SpeechServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Synthesize", Handler: synthesizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "muryar/v1/speech.proto",
}

func synthesizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.SynthesizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SpeechServer).Synthesize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: synthesizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SpeechServer).Synthesize(ctx, req.(*message.SynthesizeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
	health *health.Server
}

// New creates a new gRPC transport on the given port. The health service
// reports NOT_SERVING until SetServing(true) is called.
func New(port int, service transport.Service) *Transport {
	t := &Transport{
		port:   port,
		server: grpc.NewServer(grpc.UnaryInterceptor(logUnary)),
		health: health.NewServer(),
	}
	t.server.RegisterService(&speechServiceDesc, &speechServer{service: service})
	healthpb.RegisterHealthServer(t.server, t.health)
	t.SetServing(false)
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// SetServing updates the status reported by the health service.
func (t *Transport) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", st)
	t.health.SetServingStatus(ServiceName, st)
}

// Serving reports the status the health service currently gives the
// speech service.
func (t *Transport) Serving() bool {
	resp, err := t.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

// Listen starts the gRPC server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		_ = t.Close()
	}()

	return t.Serve(lis)
}

// Serve accepts connections on lis until the server is stopped.
func (t *Transport) Serve(lis net.Listener) error {
	if err := t.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.health.Shutdown()
	t.server.GracefulStop()
	return nil
}

type speechServer struct {
	service transport.Service
}

func (s *speechServer) Synthesize(ctx context.Context, req *message.SynthesizeRequest) (*message.SynthesizeResponse, error) {
	r := req.WithDefaults()
	res, err := s.service.Synthesize(ctx, speech.Request{Text: r.Text, Language: r.Language, Voice: r.Voice})
	if err != nil {
		return nil, statusError(err)
	}
	out := transport.SynthesizeResponse(res, true)
	return &out, nil
}

// statusError maps a service error onto a gRPC status carrying the
// user-facing message.
func statusError(err error) error {
	var remote *tts.RemoteError
	msg := speech.UserMessage(err)
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, tts.ErrMissingAPIKey):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.As(err, &remote), errors.Is(err, tts.ErrNoAudioData),
		errors.Is(err, audio.ErrDecode), errors.Is(err, audio.ErrMaterialize):
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	if code != codes.OK && code != codes.InvalidArgument {
		slog.Error("grpc request failed", "method", info.FullMethod, "code", code.String(), "error", err)
	} else {
		slog.Debug("grpc request", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
	}
	return resp, err
}
