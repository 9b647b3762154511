// SPDX-License-Identifier: MIT
package spectral

import "sync"

// Snapshot is a copy of the processor's observable state.
type Snapshot struct {
	State   State  `json:"state"`
	Backend string `json:"backend"`

	Frames      uint64 `json:"frames"`
	Hops        uint64 `json:"hops"`
	NoiseHops   uint64 `json:"noise_hops"`
	Bypassed    uint64 `json:"bypassed"`
	Substituted uint64 `json:"substituted"`
	PoolMisses  uint64 `json:"pool_misses"`

	Calibrating bool      `json:"calibrating"`
	Threshold   float64   `json:"threshold"`
	MeanGain    float64   `json:"mean_gain"`
	Features    Features  `json:"features"`
	Bands       []float64 `json:"bands"`
	Noise       []float64 `json:"noise_profile"`
}

// published holds the values the audio thread hands over to readers.
// The writer only ever TryLocks so it never waits on a reader.
type published struct {
	mu          sync.Mutex
	calibrating bool
	threshold   float64
	meanGain    float64
	features    Features
	bands       []float64
	noise       []float64
}

func newPublished(numBands, bins int) *published {
	return &published{
		calibrating: true,
		meanGain:    1,
		bands:       make([]float64, numBands),
		noise:       make([]float64, bins),
	}
}

// offer copies the current values in unless a reader holds the lock.
func (s *published) offer(c *classifier, meanGain float64, features *Features, bands, noise []float64) {
	if !s.mu.TryLock() {
		return
	}
	s.calibrating = c.calibrating()
	s.threshold = c.threshold
	s.meanGain = meanGain
	s.features = *features
	copy(s.bands, bands)
	copy(s.noise, noise)
	s.mu.Unlock()
}

// copyInto fills the published fields of dst, reusing its slices when
// they have the right length.
func (s *published) copyInto(dst *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dst.Calibrating = s.calibrating
	dst.Threshold = s.threshold
	dst.MeanGain = s.meanGain
	dst.Features = s.features
	dst.Bands = resize(dst.Bands, len(s.bands))
	copy(dst.Bands, s.bands)
	dst.Noise = resize(dst.Noise, len(s.noise))
	copy(dst.Noise, s.noise)
}

func resize(buf []float64, n int) []float64 {
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
