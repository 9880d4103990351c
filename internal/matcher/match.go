package matcher

import (
	"context"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"panako/internal/config"
	"panako/internal/container"
	"panako/internal/xerrors"
)

// Detection is one candidate reference match for a query, with the
// estimated time/frequency scaling recovered by clustering (§3).
type Detection struct {
	RefID                   string  `json:"ref_identifier"`
	QueryStartS             float64 `json:"query_start_s"`
	QueryStopS              float64 `json:"query_stop_s"`
	RefStartS               float64 `json:"ref_start_s"`
	RefStopS                float64 `json:"ref_stop_s"`
	Score                   int     `json:"score"`
	TimeFactor              float64 `json:"time_factor"`
	FrequencyFactor         float64 `json:"frequency_factor"`
	PercentSecondsWithMatch float64 `json:"percent_seconds_with_match"`
}

type vote struct {
	refT   int64
	queryT int64
	deltaT int64
	deltaF int
}

// Match looks up every query record against idx, clusters the votes
// per reference by frequency offset and then by time offset, and
// returns the surviving Detections sorted by descending score, capped
// at maxResults (0 means unlimited). spectral supplies the frame rate
// (sampleRate/hopSize) and octave layout needed to turn frame-index
// deltas into seconds and the frequency ratio.
//
// Sign convention (resolves the "time_factor direction" open question):
// TimeFactor is the slope of query-frame-index against reference-frame-
// index. TimeFactor > 1 means the query runs slower than the reference
// (the same reference span covers more query frames); TimeFactor < 1
// means the query runs faster.
func Match(ctx context.Context, idx *Index, queryRecords []container.Record, cfg config.Matcher, spectral config.Spectral, maxResults int) ([]Detection, error) {
	if len(queryRecords) == 0 {
		return nil, xerrors.New(xerrors.QueryUnreadable, errEmptyQuery)
	}

	votesByRef := make(map[string][]vote)
	for _, qr := range queryRecords {
		select {
		case <-ctx.Done():
			return nil, xerrors.New(xerrors.Cancelled, ctx.Err())
		default:
		}

		for _, e := range idx.Lookup(qr.Hash) {
			votesByRef[e.RefID] = append(votesByRef[e.RefID], vote{
				refT:   int64(e.T1),
				queryT: int64(qr.T1),
				deltaT: int64(qr.T1) - int64(e.T1),
				deltaF: int(qr.F1) - int(e.F1),
			})
		}
	}

	minQueryT, maxQueryT := queryTRange(queryRecords)
	framesPerSecond := float64(spectral.SampleRate) / float64(spectral.HopSize)
	queryDurationS := float64(maxQueryT-minQueryT) / framesPerSecond

	var detections []Detection
	for refID, votes := range votesByRef {
		d, ok := clusterRef(refID, votes, cfg, spectral.BinsPerOctave, minQueryT, queryDurationS, framesPerSecond)
		if !ok {
			continue
		}
		if d.QueryStopS-d.QueryStartS < cfg.MinDurationS || d.PercentSecondsWithMatch < cfg.MinCoverage {
			continue
		}
		detections = append(detections, d)
	}

	sort.Slice(detections, func(i, j int) bool { return detections[i].Score > detections[j].Score })
	if maxResults > 0 && len(detections) > maxResults {
		detections = detections[:maxResults]
	}

	return detections, nil
}

func queryTRange(records []container.Record) (min, max int64) {
	min, max = int64(records[0].T1), int64(records[0].T1)
	for _, r := range records {
		t := int64(r.T1)
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	return
}

// clusterRef buckets votes first by their most common frequency offset
// (the pitch-shift signature), then by time offset within tolerance
// (the time-stretch signature), and fits a line through the surviving
// votes to recover time_factor and the ref_start/ref_stop positions.
// minQueryT and queryDurationS describe the whole query (not just this
// reference's cluster), and are needed to anchor the one-second
// coverage buckets and their denominator per §4.G.3.
func clusterRef(refID string, votes []vote, cfg config.Matcher, bandsPerOctave int, minQueryT int64, queryDurationS, framesPerSecond float64) (Detection, bool) {
	modalDeltaF, ok := modeDeltaF(votes)
	if !ok {
		return Detection{}, false
	}

	sameFreq := votes[:0:0]
	for _, v := range votes {
		if v.deltaF == modalDeltaF {
			sameFreq = append(sameFreq, v)
		}
	}

	cluster := clusterDeltaT(sameFreq, cfg.DeltaTToleranceFrames)
	if len(cluster) < cfg.MinScore {
		return Detection{}, false
	}

	xs := make([]float64, len(cluster))
	ys := make([]float64, len(cluster))
	minQT, maxQT := cluster[0].queryT, cluster[0].queryT
	seconds := make(map[int64]struct{}, len(cluster))
	for i, v := range cluster {
		xs[i] = float64(v.refT)
		ys[i] = float64(v.queryT)
		if v.queryT < minQT {
			minQT = v.queryT
		}
		if v.queryT > maxQT {
			maxQT = v.queryT
		}
		seconds[int64(float64(v.queryT-minQueryT)/framesPerSecond)] = struct{}{}
	}

	slope, intercept, timeFactor, ok := fitLine(xs, ys)
	if !ok {
		return Detection{}, false
	}
	refStartFrames := refAt(float64(minQT), slope, intercept)
	refStopFrames := refAt(float64(maxQT), slope, intercept)

	coverage := 0.0
	if queryDurationS > 0 {
		coverage = float64(len(seconds)) / queryDurationS
	}

	return Detection{
		RefID:                   refID,
		QueryStartS:             float64(minQT) / framesPerSecond,
		QueryStopS:              float64(maxQT) / framesPerSecond,
		RefStartS:               refStartFrames / framesPerSecond,
		RefStopS:                refStopFrames / framesPerSecond,
		Score:                   len(cluster),
		TimeFactor:              timeFactor,
		FrequencyFactor:         math.Pow(2, float64(modalDeltaF)/float64(bandsPerOctave)),
		PercentSecondsWithMatch: coverage,
	}, true
}

// refAt solves the fitted line queryT = slope*refT + intercept for
// refT at the given queryT, i.e. the reference-timeline position that
// corresponds to a particular point in query time. A zero slope (the
// cluster's votes share a single reference frame) has no time axis to
// invert, so every queryT maps to that one reference frame.
func refAt(queryT, slope, intercept float64) float64 {
	if slope == 0 {
		return intercept
	}
	return (queryT - intercept) / slope
}

// modeDeltaF returns the most frequent deltaF among votes. Ties are
// broken toward the smaller magnitude shift, the more conservative
// (less aggressive pitch-shift) explanation.
func modeDeltaF(votes []vote) (int, bool) {
	if len(votes) == 0 {
		return 0, false
	}

	counts := make(map[int]int, len(votes))
	for _, v := range votes {
		counts[v.deltaF]++
	}

	best, bestCount := 0, -1
	for df, c := range counts {
		if c > bestCount || (c == bestCount && abs(df) < abs(best)) {
			best, bestCount = df, c
		}
	}
	return best, true
}

// clusterDeltaT groups votes into fixed-width buckets of deltaT and
// returns the members of the largest bucket.
func clusterDeltaT(votes []vote, toleranceFrames int) []vote {
	if toleranceFrames <= 0 {
		toleranceFrames = 1
	}

	buckets := make(map[int64][]vote)
	for _, v := range votes {
		key := v.deltaT / int64(toleranceFrames)
		if v.deltaT < 0 && v.deltaT%int64(toleranceFrames) != 0 {
			key-- // floor division, so the bucket around zero is no wider than the rest
		}
		buckets[key] = append(buckets[key], v)
	}

	var best []vote
	for _, b := range buckets {
		if len(b) > len(best) {
			best = b
		}
	}
	return best
}

// fitLine performs a simple least-squares fit queryT = slope*refT +
// intercept using the montanaflynn/stats moment functions, and also
// returns the reported TimeFactor. When every vote shares the same
// refT (denominator == 0) there is no stretch signal to fit: slope and
// intercept are set up so refAt always resolves to that one reference
// frame (see refAt), and TimeFactor is reported as 1 by convention.
func fitLine(xs, ys []float64) (slope, intercept, timeFactor float64, ok bool) {
	if len(xs) < 2 {
		return 0, 0, 0, false
	}

	meanX, err := stats.Mean(xs)
	if err != nil {
		return 0, 0, 0, false
	}
	meanY, err := stats.Mean(ys)
	if err != nil {
		return 0, 0, 0, false
	}

	var numerator, denominator float64
	for i := range xs {
		dx := xs[i] - meanX
		numerator += dx * (ys[i] - meanY)
		denominator += dx * dx
	}
	if denominator == 0 {
		return 0, meanX, 1, true
	}

	slope = numerator / denominator
	intercept = meanY - slope*meanX
	return slope, intercept, slope, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var errEmptyQuery = queryErr("query has no fingerprints")

type queryErr string

func (e queryErr) Error() string { return string(e) }
