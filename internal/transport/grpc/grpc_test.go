package grpc

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

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
	return &tts.SynthesizeResult{Data: base64.StdEncoding.EncodeToString(make([]byte, 200)), SampleRate: 24000}, nil
}

func (s *stubSynth) Close() error { return nil }

func startServer(t *testing.T, synth tts.Synthesizer) (*Transport, *Client) {
	t.Helper()
	objects := objectstore.New(time.Hour)
	orch := speech.New(synth, session.NewStore(time.Hour, objects.Release), objects, speech.Options{})

	tr := New(0, orch)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = tr.Serve(lis) }()
	t.Cleanup(func() { _ = tr.Close() })

	client, err := Dial("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return tr, client
}

func TestSynthesize(t *testing.T) {
	_, client := startServer(t, &stubSynth{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Synthesize(ctx, &message.SynthesizeRequest{Text: "Hello world", Language: "English", Voice: "Fenrir"})
	require.NoError(t, err)

	assert.Equal(t, "muryar-ai-English-Fenrir.wav", resp.FileName)
	assert.Equal(t, "audio/wav", resp.ContentType)
	assert.Equal(t, 24000, resp.SampleRate)
	assert.Len(t, resp.Audio, 244)
	assert.Equal(t, "RIFF", string(resp.Audio[:4]))
}

func TestSynthesizeErrorCodes(t *testing.T) {
	cases := []struct {
		name  string
		synth *stubSynth
		text  string
		code  codes.Code
		msg   string
	}{
		{"validation", &stubSynth{}, " ", codes.InvalidArgument, "Please enter some text."},
		{"missing key", &stubSynth{err: tts.ErrMissingAPIKey}, "hi", codes.FailedPrecondition, "API key is missing."},
		{"remote", &stubSynth{err: &tts.RemoteError{StatusCode: 500}}, "hi", codes.Unavailable, "Failed to generate audio. Please try again later."},
		{"no audio", &stubSynth{err: tts.ErrNoAudioData}, "hi", codes.Unavailable, "Failed to generate audio. Please try again later."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, client := startServer(t, tc.synth)
			_, err := client.Synthesize(context.Background(), &message.SynthesizeRequest{Text: tc.text})
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, st.Code())
			assert.Equal(t, tc.msg, st.Message())
		})
	}
}

func TestHealthFollowsServing(t *testing.T) {
	tr, client := startServer(t, &stubSynth{})
	hc := healthpb.NewHealthClient(client.Conn())

	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
	assert.False(t, tr.Serving())
	tr.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())
	assert.True(t, tr.Serving())
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&message.SynthesizeRequest{Text: "hi", Voice: "Kore"})
	require.NoError(t, err)
	var out message.SynthesizeRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, "Kore", out.Voice)
}
