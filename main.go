// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"runtime"

	"denoise/cmd"
	"denoise/internal/log"
	"denoise/pkg/build"
)

// main sets up the runtime and hands over to the command tree.
//
// Startup (cold path): build information, runtime limits, argument
// parsing. The run command then opens the audio stream, whose callback is
// the only hot path, and blocks until a termination signal or the monitor
// exits.
func main() {
	// Development builds have no ldflags; keep the defaults.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build info: %v", err)
	}

	// One thread for the audio callback, one for UI, telemetry and I/O.
	runtime.GOMAXPROCS(2)

	if err := cmd.Execute(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
