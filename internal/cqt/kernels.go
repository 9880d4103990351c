package cqt

import "math"

// kernel is a sparse Gaussian weighting of STFT bins that project onto a
// single constant-Q bin.
type kernel struct {
	bins    []int
	weights []float64
}

// KernelBank precomputes the STFT→constant-Q projection once per
// frontend so Project can run per-frame with no allocation beyond the
// output slice, matching the teacher's pattern of precomputing reusable
// transform tables rather than recomputing them per call.
type KernelBank struct {
	kernels []kernel
}

// buildKernels lays out octaves*binsPerOctave logarithmically spaced
// center frequencies between minFreq and maxFreq and, for each, a
// Gaussian window over the STFT bins whose bandwidth matches the
// constant-Q spacing between adjacent bins (§4.B).
func buildKernels(sampleRate, windowSize int, minFreq, maxFreq float64, octaves, binsPerOctave int) *KernelBank {
	total := octaves * binsPerOctave
	kernels := make([]kernel, total)
	nyquistBin := windowSize / 2

	// Q is the ratio of a bin's center frequency to its bandwidth for a
	// geometric (constant-Q) frequency grid with binsPerOctave bins per
	// octave: adjacent centers differ by the factor 2^(1/binsPerOctave).
	q := 1.0 / (math.Pow(2, 1.0/float64(binsPerOctave)) - 1)

	for b := 0; b < total; b++ {
		centerFreq := minFreq * math.Pow(2, float64(b)/float64(binsPerOctave))
		if centerFreq > maxFreq {
			centerFreq = maxFreq
		}
		centerBin := centerFreq * float64(windowSize) / float64(sampleRate)
		bandwidthHz := centerFreq / q
		sigmaBins := (bandwidthHz * float64(windowSize) / float64(sampleRate)) / 2
		if sigmaBins < 0.5 {
			sigmaBins = 0.5
		}

		lo := int(math.Floor(centerBin - 3*sigmaBins))
		hi := int(math.Ceil(centerBin + 3*sigmaBins))
		if lo < 0 {
			lo = 0
		}
		if hi > nyquistBin {
			hi = nyquistBin
		}

		var bins []int
		var weights []float64
		for i := lo; i <= hi; i++ {
			d := float64(i) - centerBin
			w := math.Exp(-0.5 * (d * d) / (sigmaBins * sigmaBins))
			if w < 1e-4 {
				continue
			}
			bins = append(bins, i)
			weights = append(weights, w)
		}
		kernels[b] = kernel{bins: bins, weights: weights}
	}

	return &KernelBank{kernels: kernels}
}

// Project applies every kernel to a linear-frequency magnitude spectrum,
// returning one magnitude per constant-Q bin.
func (k *KernelBank) Project(magnitude []float64) []float32 {
	out := make([]float32, len(k.kernels))
	for b, kern := range k.kernels {
		var sum float64
		for i, bin := range kern.bins {
			sum += magnitude[bin] * kern.weights[i]
		}
		out[b] = float32(sum)
	}
	return out
}
