package matcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panako/internal/config"
	"panako/internal/container"
)

func refRecords(n int, startHash uint64) []container.Record {
	records := make([]container.Record, n)
	for i := 0; i < n; i++ {
		records[i] = container.Record{
			Hash: startHash + uint64(i),
			T1:   int32(i * 4),
			F1:   int16(i % 50),
			M1:   1,
		}
	}
	return records
}

func buildIndex(t *testing.T, refID string, records []container.Record) *Index {
	t.Helper()
	idx := NewIndex()
	idx.Add(refID, RefInfo{Path: refID, DurationMs: int64(len(records)) * 100}, records)
	return idx
}

func TestMatchSelfMatchScoresHighAndCoverageFull(t *testing.T) {
	cfg := config.Default()
	records := refRecords(40, 1000)
	idx := buildIndex(t, "song-a", records)

	detections, err := Match(context.Background(), idx, records, cfg.Matcher, cfg.Spectral, 10)
	require.NoError(t, err)
	require.Len(t, detections, 1)

	d := detections[0]
	assert.Equal(t, "song-a", d.RefID)
	assert.InDelta(t, 1.0, d.TimeFactor, 0.01, "TimeFactor should be ~1 for a self-match")
	assert.InDelta(t, 1.0, d.FrequencyFactor, 0.01, "FrequencyFactor should be ~1 for a self-match")
	assert.GreaterOrEqual(t, d.PercentSecondsWithMatch, 0.99, "PercentSecondsWithMatch should be ~1 for a self-match")
	assert.Equal(t, len(records), d.Score)
}

func TestMatchRecoversTimeOffset(t *testing.T) {
	cfg := config.Default()
	reference := refRecords(40, 2000)
	idx := buildIndex(t, "song-b", reference)

	// Query is the same content starting 100 frames later in absolute
	// time (as if the query recording began partway through playback).
	const offset = int32(100)
	query := make([]container.Record, len(reference))
	for i, r := range reference {
		query[i] = r
		query[i].T1 = r.T1 + offset
	}

	detections, err := Match(context.Background(), idx, query, cfg.Matcher, cfg.Spectral, 10)
	require.NoError(t, err)
	require.Len(t, detections, 1)

	assert.InDelta(t, 1.0, detections[0].TimeFactor, 0.01, "no stretch, just an offset")
}

func TestMatchFiltersBelowMinScore(t *testing.T) {
	cfg := config.Default()
	cfg.Matcher.MinScore = 100 // require more matches than this corpus can ever produce

	reference := refRecords(10, 3000)
	idx := buildIndex(t, "song-c", reference)

	detections, err := Match(context.Background(), idx, reference, cfg.Matcher, cfg.Spectral, 10)
	require.NoError(t, err)
	assert.Empty(t, detections, "expected no detections below MinScore")
}

func TestMatchRejectsEmptyQuery(t *testing.T) {
	cfg := config.Default()
	idx := NewIndex()

	_, err := Match(context.Background(), idx, nil, cfg.Matcher, cfg.Spectral, 10)
	assert.Error(t, err, "expected an error for an empty query")
}

func TestMatchUnrelatedQueryFindsNothing(t *testing.T) {
	cfg := config.Default()
	reference := refRecords(40, 4000)
	idx := buildIndex(t, "song-d", reference)

	unrelated := refRecords(40, 999999999)
	detections, err := Match(context.Background(), idx, unrelated, cfg.Matcher, cfg.Spectral, 10)
	require.NoError(t, err)
	assert.Empty(t, detections, "unrelated query should not match")
}
