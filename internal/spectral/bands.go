// SPDX-License-Identifier: MIT
package spectral

import "math"

// bandLayout splits [low, high) into equal-width bands and records the bin
// range each band averages over.
type bandLayout struct {
	start []int
	end   []int
	lowHz []float64
}

// newBandLayout lays out numBands linear bands between minHz and
// min(maxHz, Nyquist) for a spectrum of bins bins with the given bin
// spacing in Hz. A band too narrow to contain a bin uses the bin nearest
// its centre.
func newBandLayout(numBands, bins int, resolution, minHz, maxHz float64) bandLayout {
	nyquist := resolution * float64(bins-1)
	high := math.Min(maxHz, nyquist)
	low := math.Min(minHz, high)
	width := (high - low) / float64(numBands)

	l := bandLayout{
		start: make([]int, numBands),
		end:   make([]int, numBands),
		lowHz: make([]float64, numBands),
	}
	last := bins - 1
	for b := range numBands {
		lo := low + float64(b)*width
		hi := lo + width
		s := clampBin(int(math.Ceil(lo/resolution)), last)
		e := clampBin(int(math.Ceil(hi/resolution)), last+1)
		if b == numBands-1 {
			e = clampBin(int(math.Floor(high/resolution))+1, last+1)
		}
		if e <= s {
			s = clampBin(int(math.Round((lo+hi)/2/resolution)), last)
			e = s + 1
		}
		l.start[b], l.end[b], l.lowHz[b] = s, e, lo
	}
	return l
}

func clampBin(i, limit int) int {
	return max(0, min(i, limit))
}

// compute writes the mean of mags over each band into dst.
func (l *bandLayout) compute(dst, mags []float64) {
	for b := range dst {
		var sum float64
		for _, m := range mags[l.start[b]:l.end[b]] {
			sum += m
		}
		dst[b] = sum / float64(l.end[b]-l.start[b])
	}
}

func (l *bandLayout) len() int { return len(l.start) }
