// Package eventpoint is the Event-Point Extractor (§4.C): a 2D
// local-maximum filter over the constant-Q magnitude grid.
package eventpoint

import (
	"fmt"
	"sort"

	"panako/internal/config"
	"panako/internal/cqt"
)

// EventPoint is a local-maximum time-frequency cell, immutable once
// emitted.
type EventPoint struct {
	T int     // frame index
	F int     // constant-Q bin index
	M float32 // magnitude
}

func (p EventPoint) String() string {
	return fmt.Sprintf("(t=%d f=%d m=%.4f)", p.T, p.F, p.M)
}

// Extractor slides a FreqWindow x TimeWindow window over the constant-Q
// grid. A frame is only eligible for emission once CausalLatency future
// frames have been observed, giving TimeWindow = 2*CausalLatency+1
// frames of context centered on the candidate.
type Extractor struct {
	cfg       config.EventPoints
	totalBins int
	buf       []cqt.Frame
}

func NewExtractor(cfg config.EventPoints, totalBins int) *Extractor {
	return &Extractor{cfg: cfg, totalBins: totalBins}
}

// Extract drains frames and returns event points in ascending t order,
// and ascending f within a frame, per §4.C.
func (e *Extractor) Extract(frames <-chan cqt.Frame) []EventPoint {
	var points []EventPoint
	halfFreq := e.cfg.FreqWindow / 2
	center := e.cfg.CausalLatency

	for frame := range frames {
		e.buf = append(e.buf, frame)
		if len(e.buf) > e.cfg.TimeWindow {
			e.buf = e.buf[1:]
		}
		if len(e.buf) < e.cfg.TimeWindow {
			continue
		}

		candidate := e.buf[center]
		for f := 0; f < e.totalBins; f++ {
			value := candidate.Magnitudes[f]
			if value <= 0 {
				continue
			}

			loF, hiF := f-halfFreq, f+halfFreq
			if loF < 0 {
				loF = 0
			}
			if hiF >= e.totalBins {
				hiF = e.totalBins - 1
			}

			isMax := true
			window := make([]float64, 0, len(e.buf)*(hiF-loF+1))
			for _, fr := range e.buf {
				for ff := loF; ff <= hiF; ff++ {
					m := fr.Magnitudes[ff]
					window = append(window, float64(m))
					if fr.Index == candidate.Index && ff == f {
						continue
					}
					if m >= value {
						isMax = false
					}
				}
			}
			if !isMax {
				continue
			}

			if float64(value) < medianOf(window)*(1+e.cfg.NoiseFloorRatio) {
				continue
			}

			points = append(points, EventPoint{T: candidate.Index, F: f, M: value})
		}
	}

	return points
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
