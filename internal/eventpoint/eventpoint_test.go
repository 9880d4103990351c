package eventpoint

import (
	"testing"

	"panako/internal/config"
	"panako/internal/cqt"
)

func makeFrames(n, bins int, fill func(t, f int) float32) []cqt.Frame {
	frames := make([]cqt.Frame, n)
	for t := 0; t < n; t++ {
		mags := make([]float32, bins)
		for f := 0; f < bins; f++ {
			mags[f] = fill(t, f)
		}
		frames[t] = cqt.Frame{Index: t, Magnitudes: mags}
	}
	return frames
}

func sendFrames(frames []cqt.Frame) <-chan cqt.Frame {
	ch := make(chan cqt.Frame)
	go func() {
		defer close(ch)
		for _, f := range frames {
			ch <- f
		}
	}()
	return ch
}

func TestExtractSilenceYieldsNoEventPoints(t *testing.T) {
	cfg := config.Default().EventPoints
	bins := 200
	frames := makeFrames(40, bins, func(t, f int) float32 { return 0 })

	ex := NewExtractor(cfg, bins)
	points := ex.Extract(sendFrames(frames))

	if len(points) != 0 {
		t.Fatalf("got %d event points from silence, want 0", len(points))
	}
}

func TestExtractFindsIsolatedPeak(t *testing.T) {
	cfg := config.Default().EventPoints
	bins := 200
	const peakT, peakF = 20, 100

	frames := makeFrames(40, bins, func(t, f int) float32 {
		if t == peakT && f == peakF {
			return 10.0
		}
		return 1.0
	})

	ex := NewExtractor(cfg, bins)
	points := ex.Extract(sendFrames(frames))

	found := false
	for _, p := range points {
		if p.T == peakT && p.F == peakF {
			found = true
		}
		if p.M <= 1.0 {
			t.Fatalf("emitted a non-peak cell as an event point: %+v", p)
		}
	}
	if !found {
		t.Fatalf("expected the isolated peak at t=%d f=%d to be detected, got %v", peakT, peakF, points)
	}
}

func TestExtractEmissionOrderIsAscendingByT(t *testing.T) {
	cfg := config.Default().EventPoints
	bins := 200

	frames := makeFrames(60, bins, func(t, f int) float32 {
		// A handful of scattered peaks, well separated in both axes.
		if f%40 == 0 && t%7 == 0 {
			return 5.0
		}
		return 1.0
	})

	ex := NewExtractor(cfg, bins)
	points := ex.Extract(sendFrames(frames))

	for i := 1; i < len(points); i++ {
		if points[i].T < points[i-1].T {
			t.Fatalf("points not in ascending t order at index %d: %+v then %+v", i, points[i-1], points[i])
		}
		if points[i].T == points[i-1].T && points[i].F < points[i-1].F {
			t.Fatalf("points not in ascending f order within a frame at index %d", i)
		}
	}
}
