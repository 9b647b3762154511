// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"runtime"

	"denoise/pkg/build"

	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information and compiled-in capabilities",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := build.GetBuildFlags()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", info.Name, info.Version)
			fmt.Fprintf(w, "  commit:  %s\n", info.Commit)
			fmt.Fprintf(w, "  built:   %s\n", info.Time)
			fmt.Fprintf(w, "  runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			for _, c := range build.Capabilities() {
				state := "off"
				if c.Enabled {
					state = "on"
				}
				fmt.Fprintf(w, "  %-16s %s\n", c.Name+":", state)
			}
		},
	}
}
