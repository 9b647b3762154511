// SPDX-License-Identifier: MIT

//go:build noaccel

package fft

import "denoise/internal/params"

const acceleratedCompiled = false

// MaxAcceleratedSize is zero when the accelerated library is not compiled in.
const MaxAcceleratedSize = 0

func newAccelerated(size int, precision params.Precision) (Backend, error) {
	return nil, unavailable("accelerated transform library not compiled in (noaccel)")
}
