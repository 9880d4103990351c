package matcher

import (
	"context"

	"panako/internal/config"
	"panako/internal/container"
	"panako/internal/xerrors"
)

// DetectFile is the end-to-end entry point used by the matcher CLI: it
// loads the corpus from corpusDir, reads the query fingerprint file at
// queryPath, and returns the ranked Detections.
func DetectFile(ctx context.Context, corpusDir, queryPath string, cfg config.Config, maxResults int) ([]Detection, error) {
	idx, err := LoadCorpus(ctx, corpusDir, cfg.Matcher)
	if err != nil {
		return nil, err
	}

	queryDoc, err := container.Read(queryPath)
	if err != nil {
		return nil, xerrors.New(xerrors.QueryUnreadable, err)
	}

	return Match(ctx, idx, queryDoc.Records, cfg.Matcher, cfg.Spectral, maxResults)
}
