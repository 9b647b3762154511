// SPDX-License-Identifier: MIT
package spectral

import "fmt"

// State is the lifecycle state of a Processor.
type State int32

const (
	Uninitialized State = iota
	Ready
	Processing
	Faulted
	Closed
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Ready:         "ready",
	Processing:    "processing",
	Faulted:       "faulted",
	Closed:        "closed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome describes what a Process call wrote to its destination.
type Outcome int

const (
	// Processed: dst holds denoised audio.
	Processed Outcome = iota
	// Bypassed: dst is a copy of src because the processor is faulted or
	// not configured.
	Bypassed
	// Substituted: the frame faulted; dst holds src, or silence when src
	// itself was not finite.
	Substituted
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Bypassed:
		return "bypassed"
	case Substituted:
		return "substituted"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
