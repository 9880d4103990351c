// Package pcm is the PCM Source collaborator (§4.A): it turns an audio
// file of any supported container into a mono 16 kHz f32 sample stream.
// New containers are added by registering an Opener, never by adding a
// type switch here — see the "dynamic dispatch of decoders" design note.
package pcm

import (
	"path/filepath"
	"strings"

	"panako/internal/xerrors"
)

const (
	TargetSampleRate = 16000
	TargetChannels   = 1
)

// Source is the contract every PCM opener must satisfy: a pull iterator
// over mono 16 kHz f32 samples plus the stream's reported duration.
type Source struct {
	// Next returns the next sample and true, or (0, false) once the
	// stream is exhausted. It is safe to call only from one goroutine.
	Next func() (float32, bool)

	// Samples is the full normalized buffer backing Next. The monitor
	// segmenter slices it directly to build per-window sub-sources
	// instead of re-decoding and re-resampling per window.
	Samples []float32

	DurationMs int64
	SampleRate int // always TargetSampleRate once Next is produced by this package
	Channels   int // always TargetChannels
}

// FromSamples wraps an already-normalized (mono, TargetSampleRate)
// sample slice in a Source, for callers that slice a larger buffer
// (e.g. the monitor segmenter) rather than decoding a file.
func FromSamples(samples []float32) *Source {
	durationMs := int64(float64(len(samples)) / float64(TargetSampleRate) * 1000)
	i := 0
	return &Source{
		Next: func() (float32, bool) {
			if i >= len(samples) {
				return 0, false
			}
			s := samples[i]
			i++
			return s, true
		},
		Samples:    samples,
		DurationMs: durationMs,
		SampleRate: TargetSampleRate,
		Channels:   TargetChannels,
	}
}

// Opener decodes path into raw (possibly multi-channel, any sample rate)
// float32 samples plus the native sample rate and channel count. pcm.Open
// resamples and downmixes the result to the target shape.
type Opener func(path string) (samples []float32, sampleRate, channels int, err error)

var openers = map[string]Opener{}

// Register associates a lower-cased file extension (including the dot,
// e.g. ".wav") with an Opener. Call from an init() in the opener's file.
func Register(ext string, o Opener) {
	openers[strings.ToLower(ext)] = o
}

// Open resolves the opener for path's extension, decodes it, and returns
// a Source whose Next already yields normalized 16 kHz mono samples.
func Open(path string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(path))

	open, ok := openers[ext]
	if !ok {
		open, ok = openers["*"] // external fallback decoder, if registered
	}
	if !ok {
		return nil, xerrors.Newf(xerrors.UnsupportedInput, "no decoder registered for %q", ext)
	}

	raw, sr, ch, err := open(path)
	if err != nil {
		return nil, err
	}
	if sr <= 0 || ch <= 0 {
		return nil, xerrors.Newf(xerrors.DecodeError, "decoder for %q reported invalid shape (sr=%d ch=%d)", path, sr, ch)
	}

	mono := Downmix(raw, ch)
	resampled := Resample(mono, sr, TargetSampleRate)

	return FromSamples(resampled), nil
}
