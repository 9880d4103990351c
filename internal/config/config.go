// Package config loads the tunable parameters of the fingerprinting and
// matching pipeline from a YAML document, falling back to the fixed
// defaults from the specification when no file is given.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Spectral holds the constant-Q frontend parameters (§4.B). These are
// fixed by the spec but kept configurable so implementations can be
// pinned and audited rather than hard-coded in multiple places.
type Spectral struct {
	SampleRate    int     `yaml:"sample_rate"`
	WindowSize    int     `yaml:"window_size"`
	HopSize       int     `yaml:"hop_size"`
	MinFreqHz     float64 `yaml:"min_freq_hz"`
	MaxFreqHz     float64 `yaml:"max_freq_hz"`
	Octaves       int     `yaml:"octaves"`
	BinsPerOctave int     `yaml:"bins_per_octave"`
}

func (s Spectral) TotalBins() int { return s.Octaves * s.BinsPerOctave }

// EventPoints holds the 2D local-maximum filter parameters (§4.C).
type EventPoints struct {
	FreqWindow      int     `yaml:"freq_window"`
	TimeWindow      int     `yaml:"time_window"`
	CausalLatency   int     `yaml:"causal_latency"`
	NoiseFloorRatio float64 `yaml:"noise_floor_ratio"`
}

// Hashing holds the triplet target-zone parameters (§4.D).
type Hashing struct {
	MinDt          int `yaml:"min_dt"`
	MaxDt          int `yaml:"max_dt"`
	MaxDf          int `yaml:"max_df"`
	MaxCandidates  int `yaml:"max_candidates"`  // N: p2 candidates per anchor
	MaxCandidates2 int `yaml:"max_candidates2"` // N': p3 candidates per p2
}

// Monitor holds the segmenter parameters (§4.F).
type Monitor struct {
	ActivationThresholdS float64 `yaml:"activation_threshold_s"`
	SegmentDurationS     float64 `yaml:"segment_duration_s"`
	OverlapS             float64 `yaml:"overlap_s"`
	MinTrailingS         float64 `yaml:"min_trailing_s"`
}

// Matcher holds the alignment/clustering parameters (§4.G, Open Question a).
type Matcher struct {
	DeltaTToleranceFrames int     `yaml:"delta_t_tolerance_frames"`
	MinScore              int     `yaml:"min_score"`
	MinDurationS           float64 `yaml:"min_duration_s"`
	MinCoverage            float64 `yaml:"min_coverage"`
	WorkerCount            int     `yaml:"worker_count"` // 0 = runtime.NumCPU()
}

// Config is the full set of algorithm/runtime parameters.
type Config struct {
	Spectral    Spectral    `yaml:"spectral"`
	EventPoints EventPoints `yaml:"event_points"`
	Hashing     Hashing     `yaml:"hashing"`
	Monitor     Monitor     `yaml:"monitor"`
	Matcher     Matcher     `yaml:"matcher"`
}

// Default returns the fixed parameters named throughout the spec.
func Default() Config {
	return Config{
		Spectral: Spectral{
			SampleRate:    16000,
			WindowSize:    1024,
			HopSize:       128,
			MinFreqHz:     110,
			MaxFreqHz:     7040,
			Octaves:       6,
			BinsPerOctave: 85,
		},
		EventPoints: EventPoints{
			FreqWindow:      103,
			TimeWindow:      25,
			CausalLatency:   12,
			NoiseFloorRatio: 0.05,
		},
		Hashing: Hashing{
			MinDt:          1,
			MaxDt:          64,
			MaxDf:          128,
			MaxCandidates:  3,
			MaxCandidates2: 3,
		},
		Monitor: Monitor{
			ActivationThresholdS: 25,
			SegmentDurationS:     25,
			OverlapS:             5,
			MinTrailingS:         1,
		},
		Matcher: Matcher{
			DeltaTToleranceFrames: 4, // ~±1.5% time-stretch tolerance at typical cluster spans
			MinScore:              10,
			MinDurationS:          0.1,
			MinCoverage:           0.10,
			WorkerCount:           0,
		},
	}
}

// Load reads a YAML document at path and overlays it on top of Default().
// A missing file is not an error; it simply yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
