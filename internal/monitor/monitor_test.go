package monitor

import (
	"testing"

	"panako/internal/config"
	"panako/internal/container"
	"panako/internal/pcm"
)

func TestPlanSkipsShortSources(t *testing.T) {
	cfg := config.Default().Monitor
	samples := make([]float32, pcm.TargetSampleRate*10) // 10s, below the 25s threshold
	src := pcm.FromSamples(samples)

	windows := Plan(src, cfg, true)
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1 for a sub-threshold source", len(windows))
	}
	if windows[0].StartS != 0 || windows[0].EndS != 10 {
		t.Fatalf("window bounds = [%v,%v], want [0,10]", windows[0].StartS, windows[0].EndS)
	}
}

func TestPlanNeverSegmentsWithoutMonitorMode(t *testing.T) {
	cfg := config.Default().Monitor
	totalS := 63.0 // well above the 25s activation threshold
	samples := make([]float32, int(totalS*pcm.TargetSampleRate))
	src := pcm.FromSamples(samples)

	windows := Plan(src, cfg, false)
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1 for a long source with monitor mode off", len(windows))
	}
	if windows[0].StartS != 0 || windows[0].EndS != totalS {
		t.Fatalf("window bounds = [%v,%v], want [0,%v]", windows[0].StartS, windows[0].EndS, totalS)
	}
}

func TestPlanOverlapsAndCoversWholeSource(t *testing.T) {
	cfg := config.Default().Monitor // 25s window, 5s overlap, 1s min trailing
	totalS := 63.0
	samples := make([]float32, int(totalS*pcm.TargetSampleRate))
	src := pcm.FromSamples(samples)

	windows := Plan(src, cfg, true)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows for a %.0fs source, got %d", totalS, len(windows))
	}

	for i := 1; i < len(windows); i++ {
		if windows[i].StartS <= windows[i-1].StartS {
			t.Fatalf("window starts not strictly increasing at %d", i)
		}
		if windows[i].StartS >= windows[i-1].EndS {
			t.Fatalf("window %d does not overlap window %d", i, i-1)
		}
	}

	last := windows[len(windows)-1]
	if last.EndS != totalS {
		t.Fatalf("last window ends at %v, want %v", last.EndS, totalS)
	}

	for _, w := range windows {
		if w.EndS-w.StartS < cfg.MinTrailingS {
			t.Fatalf("window %+v is shorter than MinTrailingS", w)
		}
	}
}

func TestRewriteAbsoluteShiftsTimestamps(t *testing.T) {
	spectral := config.Default().Spectral
	window := Window{Index: 2, StartS: 50, EndS: 75}

	records := []container.Record{{T1: 0}, {T1: 100}}
	shifted := RewriteAbsolute(records, window, spectral)

	framesPerSecond := float64(spectral.SampleRate) / float64(spectral.HopSize)
	wantOffset := int32(50 * framesPerSecond)

	for i, r := range shifted {
		if r.T1 != records[i].T1+wantOffset {
			t.Fatalf("record %d: T1 = %d, want %d", i, r.T1, records[i].T1+wantOffset)
		}
	}
}

func TestSegmentsTableMatchesWindows(t *testing.T) {
	windows := []Window{
		{StartS: 0, EndS: 25},
		{StartS: 20, EndS: 45},
	}
	segs := Segments(windows)
	if len(segs) != len(windows) {
		t.Fatalf("got %d segments, want %d", len(segs), len(windows))
	}
	for i, s := range segs {
		if s.StartS != windows[i].StartS || s.EndS != windows[i].EndS {
			t.Fatalf("segment %d = %+v, want start=%v end=%v", i, s, windows[i].StartS, windows[i].EndS)
		}
	}
}
