// Muryar is a multi-language text-to-speech service. It turns text into
// 16-bit PCM WAV files using the Gemini speech models and serves them over
// HTTP and gRPC.
//
// Usage:
//
//	muryar [flags]
//	muryar --config /path/to/muryar.yaml
//	muryar --say "Sannu da zuwa" --language Hausa --voice Kore
//	muryar --say "Sannu da zuwa" --server localhost:50051
//
// @title       Muryar API
// @version     1.0
// @description Multi-language text-to-speech: text in, 16-bit PCM WAV out.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/muryar/internal/catalog"
	"github.com/nadzzz/muryar/internal/config"
	"github.com/nadzzz/muryar/internal/health"
	"github.com/nadzzz/muryar/internal/message"
	"github.com/nadzzz/muryar/internal/objectstore"
	"github.com/nadzzz/muryar/internal/session"
	"github.com/nadzzz/muryar/internal/speech"
	"github.com/nadzzz/muryar/internal/transport"
	grpctransport "github.com/nadzzz/muryar/internal/transport/grpc"
	httptransport "github.com/nadzzz/muryar/internal/transport/http"
	"github.com/nadzzz/muryar/internal/tts/gemini"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("muryar failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := config.Flags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if v, _ := flags.GetBool("version"); v {
		fmt.Fprintf(stdout, "muryar %s\n", version)
		return nil
	}
	if v, _ := flags.GetBool("list-voices"); v {
		return printCatalog(stdout)
	}

	configFile, _ := flags.GetString("config")
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)

	synth := gemini.New(cfg.Gemini)
	defer synth.Close()
	if !synth.Configured() {
		slog.Warn("no Gemini API key configured; every synthesis request will fail until one is set")
	}

	objects := objectstore.New(cfg.Objects.TTL)
	sessions := session.NewStore(cfg.Sessions.TTL, objects.Release)
	orch := speech.New(synth, sessions, objects, speech.Options{
		AppName:    cfg.App.Name,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	})

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if text, _ := flags.GetString("say"); text != "" {
		return say(ctx, orch, flags, text, stdout)
	}
	return serve(ctx, cfg, orch, objects, sessions)
}

// say synthesizes text once and writes the WAV file. With --server the
// request goes to a running muryar gRPC server instead of the model.
func say(ctx context.Context, orch *speech.Orchestrator, flags *pflag.FlagSet, text string, stdout io.Writer) error {
	language, _ := flags.GetString("language")
	voice, _ := flags.GetString("voice")
	req := message.SynthesizeRequest{Text: text, Language: language, Voice: voice}.WithDefaults()

	var (
		out *message.SynthesizeResponse
		err error
	)
	if addr, _ := flags.GetString("server"); addr != "" {
		out, err = sayRemote(ctx, addr, &req)
	} else {
		out, err = sayLocal(ctx, orch, req)
	}
	if err != nil {
		return err
	}

	path, _ := flags.GetString("output")
	if path == "" {
		path = out.FileName
	}
	if err := os.WriteFile(path, out.Audio, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%s, %d Hz)\n", path, time.Duration(out.DurationMS)*time.Millisecond, out.SampleRate)
	return nil
}

func sayLocal(ctx context.Context, orch *speech.Orchestrator, req message.SynthesizeRequest) (*message.SynthesizeResponse, error) {
	res, err := orch.Synthesize(ctx, speech.Request{Text: req.Text, Language: req.Language, Voice: req.Voice})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", speech.UserMessage(err), err)
	}
	out := transport.SynthesizeResponse(res, true)
	return &out, nil
}

func sayRemote(ctx context.Context, addr string, req *message.SynthesizeRequest) (*message.SynthesizeResponse, error) {
	client, err := grpctransport.Dial(addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	out, err := client.Synthesize(ctx, req)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return nil, fmt.Errorf("%s: %s", st.Message(), st.Code())
		}
		return nil, fmt.Errorf("calling %s: %w", addr, err)
	}
	return out, nil
}

// markReady flips both health surfaces once the transports are started.
// The gRPC service is SERVING only when the synthesizer check passes, the
// same condition /readyz applies.
func markReady(h *health.Server, grpcT *grpctransport.Transport, orch *speech.Orchestrator) {
	h.SetReady(true)
	if grpcT != nil {
		grpcT.SetServing(orch.Ready() == nil)
	}
}

// serve runs the health server and every enabled transport until ctx is
// cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, orch *speech.Orchestrator, objects *objectstore.Store, sessions *session.Store) error {
	slog.Info("muryar starting", "version", version, "model", cfg.Gemini.Model)

	go objects.Start()
	defer objects.Stop()
	go sessions.Start()
	defer sessions.Stop()

	var transports []transport.Transport
	var grpcT *grpctransport.Transport
	if cfg.Transports.GRPC.Enabled {
		grpcT = grpctransport.New(cfg.Transports.GRPC.Port, orch)
		transports = append(transports, grpcT)
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port, orch))
	}
	if len(transports) == 0 {
		return errors.New("no transports enabled, enable at least one in config")
	}

	healthServer := health.New(cfg.Server.HealthPort)
	healthServer.AddCheck("synthesizer", func(context.Context) error { return orch.Ready() })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.ListenAndServe(gctx) })
	for _, t := range transports {
		g.Go(func() error {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(gctx); err != nil {
				return fmt.Errorf("%s transport: %w", t.Name(), err)
			}
			return nil
		})
	}

	// Mark as ready once all transports are started.
	markReady(healthServer, grpcT, orch)
	slog.Info("muryar ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	<-gctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	err := g.Wait()
	slog.Info("muryar stopped")
	return err
}

func printCatalog(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tNATIVE NAME\t")
	for _, l := range catalog.Languages() {
		fmt.Fprintf(tw, "%s %s\t%s\t\n", l.Flag, l.ID, l.NativeName)
	}
	fmt.Fprintln(tw, "\t\t")
	fmt.Fprintln(tw, "VOICE\tGENDER\t")
	for _, v := range catalog.Voices() {
		fmt.Fprintf(tw, "%s %s\t%s\t\n", v.Icon, v.ID, v.Gender)
	}
	return tw.Flush()
}
