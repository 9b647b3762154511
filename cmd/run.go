// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"denoise/internal/audio"
	"denoise/internal/config"
	"denoise/internal/engine"
	"denoise/internal/log"
	"denoise/internal/transport"
	"denoise/internal/transport/udp"
	"denoise/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCommand(opts *options) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Denoise a live input device (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, opts)
		},
	}
	addEngineFlags(runCmd, opts)
	addLiveFlags(runCmd, opts)
	return runCmd
}

// runLive runs the capture -> engine -> playback loop until SIGINT or
// SIGTERM, or until the monitor is closed.
func runLive(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if opts.pick {
		sel, err := tui.PickDevice()
		if err != nil {
			return err
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.InputChannels = sel.Channels
		cfg.Engine.SampleRate = sel.SampleRate
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	stream, err := audio.NewStream(audio.StreamConfig{
		InputDevice:     cfg.Audio.InputDevice,
		OutputDevice:    cfg.Audio.OutputDevice,
		InputChannels:   cfg.Audio.InputChannels,
		OutputChannels:  cfg.Audio.OutputChannels,
		SampleRate:      cfg.Engine.SampleRate,
		FramesPerBuffer: cfg.Engine.FFTSize,
		LowLatency:      cfg.Audio.LowLatency,
		RecordBitDepth:  cfg.Recording.BitDepth,
	}, eng)
	if err != nil {
		return err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Errorf("Error closing audio stream: %v", err)
		}
	}()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}

	var recording string
	if cfg.Recording.Enabled {
		recording, err = recordingPath(cfg, opts.output, time.Now())
		if err != nil {
			return err
		}
		if err := stream.StartRecording(recording); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if err := startTelemetry(gctx, g, cfg, eng); err != nil {
		return err
	}

	if opts.monitor {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
		g.Go(func() error {
			defer stop()
			return tui.StartMonitor(gctx, eng, tui.DefaultRefresh)
		})
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Denoising (latency %.1f ms). Press Ctrl+C to stop.\n",
			1000*float64(eng.Latency())/cfg.Engine.SampleRate)
	}

	<-gctx.Done()
	stop()
	if err := g.Wait(); err != nil {
		return err
	}

	if err := stream.StopRecording(); err != nil {
		log.Errorf("Error stopping recording: %v", err)
	}
	if recording != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nRecording saved to: %s\n", recording)
	}
	printSummary(cmd.OutOrStdout(), eng, stream.Stats())
	return nil
}

// startTelemetry launches the enabled publishers on g. They stop when ctx
// is done.
func startTelemetry(ctx context.Context, g *errgroup.Group, cfg *config.Config, eng *engine.Engine) error {
	t := cfg.Transport
	if t.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(t.WebSocketAddr)
		if err := ws.Start(); err != nil {
			ws.Close()
			return fmt.Errorf("websocket: %w", err)
		}
		reporter := transport.NewReporter(eng, ws, t.ReportInterval)
		g.Go(func() error {
			defer ws.Close()
			return reporter.Run(ctx)
		})
	}

	if t.UDPEnabled {
		sender, err := udp.NewSender(t.UDPTargetAddress)
		if err != nil {
			return err
		}
		pub, err := udp.NewPublisher(t.UDPSendInterval, sender, eng)
		if err != nil {
			sender.Close()
			return err
		}
		g.Go(func() error {
			defer sender.Close()
			return pub.Run(ctx)
		})
	}

	if cfg.Debug {
		logger := transport.NewLoggingTransport()
		reporter := transport.NewReporter(eng, logger, time.Second)
		g.Go(func() error {
			defer logger.Close()
			return reporter.Run(ctx)
		})
	}
	return nil
}

func recordingPath(cfg *config.Config, name string, now time.Time) (string, error) {
	if name == "" {
		name = "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
	}
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name, nil
	}
	if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}
	return filepath.Join(cfg.Recording.OutputDir, name), nil
}

func printSummary(w io.Writer, eng *engine.Engine, stats audio.StreamStats) {
	faults := eng.Statistics()
	fmt.Fprintf(w, "Frames: %d processed, %d bypassed, %d substituted, %d rejected\n",
		stats.Processed, stats.Bypassed, stats.Substituted, stats.Errors)
	fmt.Fprintf(w, "Faults: %d total, %d recovered, %d unrecoverable, %d warnings\n",
		faults.TotalErrors, faults.RecoveredErrors, faults.UnrecoverableErrors, faults.TotalWarnings)
	if stats.Recorded > 0 || stats.Dropped > 0 {
		fmt.Fprintf(w, "Recording: %d samples written, %d dropped\n", stats.Recorded, stats.Dropped)
	}
}
