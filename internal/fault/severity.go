// SPDX-License-Identifier: MIT
package fault

// criticalSeverity is the threshold at or above which the engine must halt
// rather than continue in bypass.
const criticalSeverity = 90

// ErrorSeverity maps a kind onto a 0-100 scale.
func ErrorSeverity(kind Kind) int {
	switch kind {
	case InvalidConfiguration:
		return 20
	case ResourceExhausted:
		return 40
	case NumericFault:
		return 50
	case BackendUnavailable:
		return 60
	case CriticalFailure:
		return 100
	default:
		return 100
	}
}

// IsCriticalError reports whether faults of this kind should stop the engine.
func IsCriticalError(kind Kind) bool {
	return ErrorSeverity(kind) >= criticalSeverity
}
