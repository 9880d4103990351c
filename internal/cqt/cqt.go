// Package cqt is the Spectral Frontend (§4.B): a windowed STFT whose
// linear-frequency bins are projected onto a 6-octave, 85-bin-per-octave
// constant-Q grid via precomputed Gaussian kernels.
package cqt

import (
	"math"
	"math/cmplx"

	"panako/internal/config"
	"panako/internal/pcm"
)

// Frame is one hop's worth of constant-Q magnitudes.
type Frame struct {
	Index       int
	Magnitudes  []float32 // len == cfg.TotalBins()
}

// Frontend turns a PCM source into a lazy sequence of Frames.
type Frontend struct {
	cfg     config.Spectral
	window  []float64
	kernels *KernelBank
}

// NewFrontend precomputes the Hann window and the constant-Q kernel bank
// for cfg. Build one Frontend per configuration and reuse it across
// files.
func NewFrontend(cfg config.Spectral) *Frontend {
	window := make([]float64, cfg.WindowSize)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(cfg.WindowSize-1))
	}

	return &Frontend{
		cfg:     cfg,
		window:  window,
		kernels: buildKernels(cfg.SampleRate, cfg.WindowSize, cfg.MinFreqHz, cfg.MaxFreqHz, cfg.Octaves, cfg.BinsPerOctave),
	}
}

// Frames pulls samples from src and emits one Frame per hop until src is
// exhausted. Frame 0 starts at sample 0. The channel is unbuffered and
// closed when the source runs dry, matching the "infinite lazy sequence"
// contract of §4.B for a pull pipeline.
func (f *Frontend) Frames(src *pcm.Source) <-chan Frame {
	out := make(chan Frame)

	go func() {
		defer close(out)

		buf := make([]float32, 0, f.cfg.WindowSize)
		for frameIdx := 0; ; frameIdx++ {
			for len(buf) < f.cfg.WindowSize {
				s, ok := src.Next()
				if !ok {
					return
				}
				buf = append(buf, s)
			}

			windowed := make([]float64, f.cfg.WindowSize)
			for j, s := range buf {
				windowed[j] = float64(s) * f.window[j]
			}

			spectrum := realFFT(windowed)
			mag := make([]float64, f.cfg.WindowSize/2+1)
			for j := range mag {
				mag[j] = cmplx.Abs(spectrum[j])
			}

			out <- Frame{Index: frameIdx, Magnitudes: f.kernels.Project(mag)}

			if f.cfg.HopSize >= len(buf) {
				buf = buf[:0]
			} else {
				copy(buf, buf[f.cfg.HopSize:])
				buf = buf[:len(buf)-f.cfg.HopSize]
			}
		}
	}()

	return out
}
