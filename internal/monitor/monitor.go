// Package monitor implements the segmenter (§4.F): long sources are
// split into overlapping windows that are fingerprinted independently,
// and each window's local frame indices are rewritten back to absolute
// frame indices from the start of the source. Every window slices the
// one decoded sample buffer of the whole source, which stays in memory.
package monitor

import (
	"panako/internal/config"
	"panako/internal/container"
	"panako/internal/pcm"
)

// Window is one segment of a longer source, carrying its own Source
// (a slice of the parent's samples) plus its absolute time bounds.
type Window struct {
	Index  int
	StartS float64
	EndS   float64
	Source *pcm.Source
}

// Plan decides whether src needs segmenting and, if so, lays out the
// overlapping windows. Segmentation only activates when monitorMode is
// requested AND the source exceeds cfg.ActivationThresholdS; otherwise
// src is returned as a single window spanning the whole input.
func Plan(src *pcm.Source, cfg config.Monitor, monitorMode bool) []Window {
	totalS := float64(len(src.Samples)) / float64(pcm.TargetSampleRate)

	if !monitorMode || totalS <= cfg.ActivationThresholdS {
		return []Window{{Index: 0, StartS: 0, EndS: totalS, Source: src}}
	}

	step := cfg.SegmentDurationS - cfg.OverlapS
	var windows []Window

	for startS := 0.0; startS < totalS; startS += step {
		endS := startS + cfg.SegmentDurationS
		if endS > totalS {
			endS = totalS
		}
		if endS-startS < cfg.MinTrailingS {
			break
		}

		startSample := int(startS * float64(pcm.TargetSampleRate))
		endSample := int(endS * float64(pcm.TargetSampleRate))
		if endSample > len(src.Samples) {
			endSample = len(src.Samples)
		}

		windows = append(windows, Window{
			Index:  len(windows),
			StartS: startS,
			EndS:   endS,
			Source: pcm.FromSamples(src.Samples[startSample:endSample]),
		})

		if endS >= totalS {
			break
		}
	}

	return windows
}

// RewriteAbsolute shifts every record's T1 (a window-local constant-Q
// frame index) by the window's start offset in frames, so a matcher
// reading the container sees one continuous absolute timeline instead
// of per-window-relative indices.
func RewriteAbsolute(records []container.Record, window Window, cfg config.Spectral) []container.Record {
	startFrame := int32(window.StartS * float64(cfg.SampleRate) / float64(cfg.HopSize))
	out := make([]container.Record, len(records))
	for i, r := range records {
		r.T1 += startFrame
		out[i] = r
	}
	return out
}

// Segments builds the metadata segments table (absolute start/end
// seconds) for a completed plan.
func Segments(windows []Window) []container.Segment {
	segs := make([]container.Segment, len(windows))
	for i, w := range windows {
		segs[i] = container.Segment{StartS: w.StartS, EndS: w.EndS}
	}
	return segs
}
