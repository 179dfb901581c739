// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"tuner/internal/config"
	"tuner/internal/dsp"
	"tuner/pkg/build"
)

// ParseArgs builds the runtime configuration: YAML file first (if
// any), then explicitly set flags on top, then validation.
func ParseArgs() (*config.Config, error) {
	info := build.GetInfo()
	options := config.New()

	// Flag values land here; only flags the user actually set are
	// copied over the file configuration.
	flagCfg := config.New()
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Detects the dominant musical note on an audio input and reports tuning deviation in cents",
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, loaded, flagCfg)
			*options = *loaded
			return options.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "Path to YAML config file (default: tuner.yaml if present)")

	// Audio input
	pf.IntVarP(&flagCfg.Audio.InputDevice, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	pf.Float64VarP(&flagCfg.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	pf.IntVarP(&flagCfg.Audio.FrameSize, "frames-per-buffer", "b", config.DefaultFrameSize,
		"Samples per analysis frame (power of 2)")
	pf.IntVarP(&flagCfg.Audio.InputChannels, "channels", "c", config.DefaultChannels,
		"Number of input channels to capture (mixed to mono)")
	pf.BoolVarP(&flagCfg.Audio.LowLatency, "low-latency", "l", false,
		"Use the device's low latency profile")
	pf.StringVarP(&flagCfg.Audio.InputFile, "file", "f", "",
		"Analyze a WAV file instead of a capture device")

	// Analysis
	pf.StringVarP(&flagCfg.Analysis.Algorithm, "algorithm", "a", dsp.AlgorithmSpectral,
		"Frequency estimation algorithm: spectral, autocorr, fft-autocorr")
	pf.StringVarP(&flagCfg.Analysis.Window, "window", "w", "hann",
		"Analysis window function (hann, hamming, blackman, ...)")

	// Output
	pf.BoolVarP(&flagCfg.TUIMode, "tui", "t", false,
		"Render results in the terminal UI instead of log lines")
	pf.BoolVar(&flagCfg.Transport.WebSocketEnabled, "websocket", false,
		"Broadcast results as JSON over WebSocket")
	pf.StringVar(&flagCfg.Transport.WebSocketAddr, "websocket-addr", options.Transport.WebSocketAddr,
		"WebSocket listen address")
	pf.BoolVar(&flagCfg.Transport.UDPEnabled, "udp", false,
		"Publish results as binary packets over UDP")
	pf.StringVar(&flagCfg.Transport.UDPTargetAddress, "udp-addr", options.Transport.UDPTargetAddress,
		"UDP target address")

	// Debug
	pf.BoolVarP(&flagCfg.Debug, "verbose", "v", false, "Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// applyFlagOverrides copies explicitly set flag values over the file
// configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg, flagCfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("device") {
		cfg.Audio.InputDevice = flagCfg.Audio.InputDevice
	}
	if f.Changed("sample-rate") {
		cfg.Audio.SampleRate = flagCfg.Audio.SampleRate
	}
	if f.Changed("frames-per-buffer") {
		cfg.Audio.FrameSize = flagCfg.Audio.FrameSize
	}
	if f.Changed("channels") {
		cfg.Audio.InputChannels = flagCfg.Audio.InputChannels
	}
	if f.Changed("low-latency") {
		cfg.Audio.LowLatency = flagCfg.Audio.LowLatency
	}
	if f.Changed("file") {
		cfg.Audio.InputFile = flagCfg.Audio.InputFile
	}
	if f.Changed("algorithm") {
		cfg.Analysis.Algorithm = flagCfg.Analysis.Algorithm
	}
	if f.Changed("window") {
		cfg.Analysis.Window = flagCfg.Analysis.Window
	}
	if f.Changed("tui") {
		cfg.TUIMode = flagCfg.TUIMode
	}
	if f.Changed("websocket") {
		cfg.Transport.WebSocketEnabled = flagCfg.Transport.WebSocketEnabled
	}
	if f.Changed("websocket-addr") {
		cfg.Transport.WebSocketAddr = flagCfg.Transport.WebSocketAddr
	}
	if f.Changed("udp") {
		cfg.Transport.UDPEnabled = flagCfg.Transport.UDPEnabled
	}
	if f.Changed("udp-addr") {
		cfg.Transport.UDPTargetAddress = flagCfg.Transport.UDPTargetAddress
	}
	if f.Changed("verbose") {
		cfg.Debug = flagCfg.Debug
	}
}
