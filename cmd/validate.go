// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCommand(opts *options) *cobra.Command {
	var printYAML bool
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print the resolved engine settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Configuration OK: %s\n", cfg.Engine)
			fmt.Fprintf(w, "Hop: %d samples, latency %.1f ms, %d bins of %.2f Hz\n",
				cfg.Engine.Hop(),
				1000*float64(cfg.Engine.FFTSize)/cfg.Engine.SampleRate,
				cfg.Engine.BinCount(),
				cfg.Engine.BinFrequency(1))
			if !printYAML {
				return nil
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = w.Write(out)
			return err
		},
	}
	addEngineFlags(validateCmd, opts)
	validateCmd.Flags().BoolVarP(&printYAML, "print", "p", false, "Print the resolved configuration as YAML")
	return validateCmd
}
