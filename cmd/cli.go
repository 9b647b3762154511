// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"denoise/internal/config"
	"denoise/internal/engine"
	"denoise/internal/log"
	"denoise/internal/params"
	"denoise/pkg/build"

	"github.com/spf13/cobra"
)

// options collects flag values. Only flags the user set override the
// configuration file.
type options struct {
	configPath string
	logLevel   string
	verbose    bool

	fftSize    int
	sampleRate float64
	numBands   int
	overlap    float64
	precision  string
	window     string
	gainFloor  float64
	noRecovery bool

	inputDevice    int
	outputDevice   int
	inputChannels  int
	outputChannels int
	lowLatency     bool
	pick           bool

	record   bool
	output   string
	bitDepth int

	monitor    bool
	websocket  string
	udpTarget  string
}

// NewRootCommand builds the command tree. The root command runs the live
// pipeline.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time spectral noise reduction",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, opts)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file (default ./config.yaml if present)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, fatal")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output (same as --log-level debug)")

	addEngineFlags(rootCmd, opts)
	addLiveFlags(rootCmd, opts)

	rootCmd.AddCommand(
		newRunCommand(opts),
		newProcessCommand(opts),
		newListCommand(),
		newValidateCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the CLI with args.
func Execute(args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func addEngineFlags(cmd *cobra.Command, opts *options) {
	def := params.Default()
	f := cmd.Flags()
	f.IntVarP(&opts.fftSize, "fft-size", "b", def.FFTSize,
		"Frame and FFT size in samples (power of two, 64-8192)")
	f.Float64VarP(&opts.sampleRate, "sample-rate", "s", def.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	f.IntVar(&opts.numBands, "bands", def.NumBands, "Number of analysis bands")
	f.Float64Var(&opts.overlap, "overlap", def.Overlap, "Frame overlap in [0, 0.95]")
	f.StringVar(&opts.precision, "precision", def.Precision.String(), "Transform precision: fp32 or fp64")
	f.StringVar(&opts.window, "window", def.Window.String(), "Analysis window")
	f.Float64Var(&opts.gainFloor, "gain-floor", def.Noise.GainFloor,
		"Lowest gain applied to noise bins (1 disables reduction)")
	f.BoolVar(&opts.noRecovery, "no-recovery", false, "Bypass on the first processing fault")
}

func addLiveFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.IntVarP(&opts.inputDevice, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	f.IntVar(&opts.outputDevice, "output-device", config.DefaultDeviceID, "Output device ID")
	f.IntVarP(&opts.inputChannels, "channels", "c", config.DefaultInputChannels,
		"Number of channels to capture (mixed down to mono)")
	f.IntVar(&opts.outputChannels, "output-channels", config.DefaultOutputChannels,
		"Number of playback channels (0 disables playback)")
	f.BoolVarP(&opts.lowLatency, "low-latency", "l", false, "Use low latency mode for real-time processing")
	f.BoolVar(&opts.pick, "pick", false, "Choose the input device interactively")
	f.BoolVarP(&opts.record, "record", "r", false, "Record the denoised stream")
	f.StringVarP(&opts.output, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")
	f.IntVar(&opts.bitDepth, "bit-depth", config.DefaultBitDepth, "Recording bit depth: 16, 24 or 32")
	f.BoolVar(&opts.monitor, "tui", false, "Show the live monitor")
	f.StringVar(&opts.websocket, "ws", "", "Serve engine snapshots on this websocket address")
	f.StringVar(&opts.udpTarget, "udp", "", "Send band magnitudes to this UDP address")
}

// loadConfig reads the configuration file and applies the flags the user
// set on cmd, then validates the result and configures logging.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.verbose {
		cfg.Debug = true
	}
	if changed("fft-size") {
		cfg.Engine.FFTSize = opts.fftSize
	}
	if changed("sample-rate") {
		cfg.Engine.SampleRate = opts.sampleRate
	}
	if changed("bands") {
		cfg.Engine.NumBands = opts.numBands
	}
	if changed("overlap") {
		cfg.Engine.Overlap = opts.overlap
	}
	if changed("precision") {
		p, err := params.ParsePrecision(opts.precision)
		if err != nil {
			return nil, err
		}
		cfg.Engine.Precision = p
	}
	if changed("window") {
		w, err := params.ParseWindowFunc(opts.window)
		if err != nil {
			return nil, err
		}
		cfg.Engine.Window = w
	}
	if changed("gain-floor") {
		cfg.Engine.Noise.GainFloor = opts.gainFloor
	}
	if opts.noRecovery {
		cfg.Recovery.Enabled = false
	}
	if changed("device") {
		cfg.Audio.InputDevice = opts.inputDevice
	}
	if changed("output-device") {
		cfg.Audio.OutputDevice = opts.outputDevice
	}
	if changed("channels") {
		cfg.Audio.InputChannels = opts.inputChannels
	}
	if changed("output-channels") {
		cfg.Audio.OutputChannels = opts.outputChannels
	}
	if opts.lowLatency {
		cfg.Audio.LowLatency = true
	}
	if opts.record {
		cfg.Recording.Enabled = true
	}
	if changed("bit-depth") {
		cfg.Recording.BitDepth = opts.bitDepth
	}
	if opts.websocket != "" {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddr = opts.websocket
	}
	if opts.udpTarget != "" {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = opts.udpTarget
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	applyLogging(cfg)
	return cfg, nil
}

func applyLogging(cfg *config.Config) {
	level, _ := log.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

// newEngine builds an engine for cfg and configures it.
func newEngine(cfg *config.Config) (*engine.Engine, error) {
	e := engine.New(engine.WithRecovery(cfg.Recovery.Enabled, cfg.Recovery.MaxRetries))
	if err := e.Configure(cfg.Engine); err != nil {
		e.Shutdown()
		return nil, err
	}
	return e, nil
}
