// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"time"

	"denoise/internal/audio"
	"denoise/internal/log"

	"github.com/spf13/cobra"
)

func newProcessCommand(opts *options) *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process IN OUT",
		Short: "Denoise a WAV file through the real-time path",
		Long: "Reads IN, mixes it down to mono, runs it frame by frame through the\n" +
			"engine exactly as a live stream would and writes OUT aligned with IN.\n" +
			"The engine sample rate follows the file.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return processFile(cmd, opts, args[0], args[1])
		},
	}
	addEngineFlags(processCmd, opts)
	processCmd.Flags().IntVar(&opts.bitDepth, "bit-depth", 0, "Output bit depth (default: same as input)")
	return processCmd
}

func processFile(cmd *cobra.Command, opts *options, in, out string) error {
	start := time.Now()

	clip, err := audio.OpenFile(in)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	cfg.Engine.SampleRate = float64(clip.SampleRate)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	log.Infof("Processing %s: %.2f s, %d channel(s), %d Hz, %d bit",
		in, clip.Duration(), clip.Channels, clip.SampleRate, clip.BitDepth)

	denoised, stats, err := audio.Render(eng, clip.Samples, cfg.Engine.FFTSize, eng.Latency())
	if err != nil {
		return err
	}

	depth := clip.BitDepth
	if cmd.Flags().Changed("bit-depth") {
		depth = opts.bitDepth
	}
	if err := audio.WriteFile(out, denoised, clip.SampleRate, depth); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Wrote %s (%d samples) in %s\n", out, len(denoised), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(w, "Frames: %d processed, %d bypassed, %d substituted\n",
		stats.Processed, stats.Bypassed, stats.Substituted)
	if faults := eng.Statistics(); faults.TotalErrors > 0 {
		fmt.Fprintf(w, "Faults: %d total, %d unrecoverable\n", faults.TotalErrors, faults.UnrecoverableErrors)
	}
	return nil
}
