// Package fingerprint turns event points into triplet-based 64-bit
// hashes (§4.D), generalizing the teacher's anchor+single-target pair
// hash to an anchor with two nested target-zone points.
package fingerprint

import (
	"panako/internal/config"
	"panako/internal/eventpoint"
)

// Hash is one triplet hash anchored at its first (earliest) point.
type Hash struct {
	Value uint64
	T1    int
	F1    int
	M1    float32
}

// bit layout (MSB to LSB), 64 bits total:
//
//	| f1 (9b) | dt1 (14b) | dt2 (14b) | df1 (9b) | df2 (9b) | reserved (9b) |
//
// f1 is the anchor's constant-Q bin (0..509, fits 9 bits). dt1/dt2 are
// the forward frame-index gaps p2-p1 and p3-p2. df1/df2 are the signed
// bin gaps p2-p1 and p3-p2, biased by maxDf so they pack unsigned.
const (
	shiftF1  = 55
	shiftDt1 = 41
	shiftDt2 = 27
	shiftDf1 = 18
	shiftDf2 = 9

	maskDt = 1<<14 - 1
	maskDf = 1<<9 - 1
)

func pack(f1, dt1, dt2, df1, df2, maxDf int) uint64 {
	biasedDf1 := uint64(df1+maxDf) & maskDf
	biasedDf2 := uint64(df2+maxDf) & maskDf
	return uint64(f1&maskDf)<<shiftF1 |
		uint64(dt1&maskDt)<<shiftDt1 |
		uint64(dt2&maskDt)<<shiftDt2 |
		biasedDf1<<shiftDf1 |
		biasedDf2<<shiftDf2
}

// Generate enumerates triplets from points (which must be sorted in
// ascending t, then ascending f, as produced by eventpoint.Extract) and
// returns one Hash per valid triplet. For each anchor p1 it considers up
// to cfg.MaxCandidates forward points within [MinDt,MaxDt] x [-MaxDf,
// MaxDf] as p2, and for each p2 up to cfg.MaxCandidates2 points in the
// same nested target zone relative to p2 as p3. Triplets with a
// zero time gap, or with a field that does not fit its bit width, are
// degenerate and silently dropped.
func Generate(points []eventpoint.EventPoint, cfg config.Hashing) []Hash {
	var hashes []Hash

	for i, p1 := range points {
		p2Idxs := candidates(points, i+1, p1, cfg)
		for _, j := range p2Idxs {
			p2 := points[j]
			p3Idxs := candidates(points, j+1, p2, config.Hashing{
				MinDt: cfg.MinDt, MaxDt: cfg.MaxDt, MaxDf: cfg.MaxDf,
				MaxCandidates: cfg.MaxCandidates2,
			})
			for _, k := range p3Idxs {
				p3 := points[k]

				dt1 := p2.T - p1.T
				dt2 := p3.T - p2.T
				if dt1 == 0 || dt2 == 0 {
					continue
				}
				df1 := p2.F - p1.F
				df2 := p3.F - p2.F
				if p1.F < 0 || p1.F > maskDf || dt1 > maskDt || dt2 > maskDt ||
					df1+cfg.MaxDf < 0 || df1+cfg.MaxDf > maskDf ||
					df2+cfg.MaxDf < 0 || df2+cfg.MaxDf > maskDf {
					continue
				}

				value := pack(p1.F, dt1, dt2, df1, df2, cfg.MaxDf)
				hashes = append(hashes, Hash{Value: value, T1: p1.T, F1: p1.F, M1: p1.M})
			}
		}
	}

	return hashes
}

// candidates returns, in ascending-t order, the indices (>= start) of up
// to cfg.MaxCandidates points within anchor's forward target zone.
// points is sorted by ascending t so the scan can stop as soon as it
// passes MaxDt.
func candidates(points []eventpoint.EventPoint, start int, anchor eventpoint.EventPoint, cfg config.Hashing) []int {
	var idxs []int
	for j := start; j < len(points) && len(idxs) < cfg.MaxCandidates; j++ {
		dt := points[j].T - anchor.T
		if dt > cfg.MaxDt {
			break
		}
		if dt < cfg.MinDt {
			continue
		}
		df := points[j].F - anchor.F
		if df < -cfg.MaxDf || df > cfg.MaxDf {
			continue
		}
		idxs = append(idxs, j)
	}
	return idxs
}

// Unpack reverses pack, recovering the five fields from a hash value.
// Used by tests and by diagnostic tooling; the matcher only ever needs
// Value itself as an opaque index key.
func Unpack(value uint64, maxDf int) (f1, dt1, dt2, df1, df2 int) {
	f1 = int((value >> shiftF1) & maskDf)
	dt1 = int((value >> shiftDt1) & maskDt)
	dt2 = int((value >> shiftDt2) & maskDt)
	df1 = int((value>>shiftDf1)&maskDf) - maxDf
	df2 = int((value>>shiftDf2)&maskDf) - maxDf
	return
}
