// Package matcher is the Index & Matcher collaborator (§4.G): an
// inverted hash index over a corpus of fingerprint containers, queried
// by voting and Δt/Δf histogram clustering to recover alignment and
// time/frequency scaling between a query and a reference.
package matcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"panako/internal/config"
	"panako/internal/container"
	"panako/internal/xerrors"
)

// numShards splits the inverted index across independent mutexes so
// concurrent corpus-load workers rarely contend on the same lock,
// generalizing the teacher's per-job worker pool to a shared structure
// that many workers write into at once.
const numShards = 256

// ReferenceEntry is one occurrence of a hash value in the corpus.
type ReferenceEntry struct {
	RefID string
	T1    int32
	F1    int16
}

type shard struct {
	mu      sync.Mutex
	entries map[uint64][]ReferenceEntry
}

// RefInfo is the per-reference metadata needed to report a match.
type RefInfo struct {
	Path       string
	DurationMs int64
}

// Index is the corpus-wide inverted hash table.
type Index struct {
	shards [numShards]*shard

	refsMu sync.Mutex
	refs   map[string]RefInfo
}

func NewIndex() *Index {
	idx := &Index{refs: make(map[string]RefInfo)}
	for i := range idx.shards {
		idx.shards[i] = &shard{entries: make(map[uint64][]ReferenceEntry)}
	}
	return idx
}

func (idx *Index) shardFor(hash uint64) *shard {
	return idx.shards[hash%numShards]
}

// Add inserts every record of one reference's fingerprint document.
func (idx *Index) Add(refID string, info RefInfo, records []container.Record) {
	idx.refsMu.Lock()
	idx.refs[refID] = info
	idx.refsMu.Unlock()

	for _, r := range records {
		sh := idx.shardFor(r.Hash)
		sh.mu.Lock()
		sh.entries[r.Hash] = append(sh.entries[r.Hash], ReferenceEntry{RefID: refID, T1: r.T1, F1: r.F1})
		sh.mu.Unlock()
	}
}

// Lookup returns every reference occurrence of hash, or nil if none.
func (idx *Index) Lookup(hash uint64) []ReferenceEntry {
	sh := idx.shardFor(hash)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	src := sh.entries[hash]
	if len(src) == 0 {
		return nil
	}
	out := make([]ReferenceEntry, len(src))
	copy(out, src)
	return out
}

// RefInfo returns the stored metadata for a loaded reference.
func (idx *Index) RefInfo(refID string) (RefInfo, bool) {
	idx.refsMu.Lock()
	defer idx.refsMu.Unlock()
	info, ok := idx.refs[refID]
	return info, ok
}

// LoadCorpus walks dir for *.fp files and loads them into a fresh
// Index using a worker pool sized by cfg.WorkerCount (0 means
// runtime.NumCPU()) fed by a jobs channel, with per-file results
// collected on a second channel. A file that fails to load is logged and
// skipped. It returns xerrors.CorpusEmpty if no fingerprint files are
// found or if every one of them fails to load.
func LoadCorpus(ctx context.Context, dir string, cfg config.Matcher) (*Index, error) {
	var paths []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(p), ".fp") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.New(xerrors.IoError, err)
	}
	if len(paths) == 0 {
		return nil, xerrors.Newf(xerrors.CorpusEmpty, "no .fp files found under %s", dir)
	}

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	idx := NewIndex()
	jobs := make(chan string, len(paths))
	type loadErr struct {
		path string
		err  error
	}
	errs := make(chan loadErr, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				select {
				case <-ctx.Done():
					errs <- loadErr{p, ctx.Err()}
					continue
				default:
				}

				doc, err := container.Read(p)
				if err != nil {
					errs <- loadErr{p, err}
					continue
				}

				refID := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
				idx.Add(refID, RefInfo{Path: p, DurationMs: doc.Meta.DurationMs}, doc.Records)
				errs <- loadErr{p, nil}
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	close(errs)

	var failures []string
	for e := range errs {
		if e.err != nil {
			log.Printf("[matcher] skipping %s: %v", e.path, e.err)
			failures = append(failures, fmt.Sprintf("%s: %v", e.path, e.err))
		}
	}
	if len(failures) == len(paths) {
		return nil, xerrors.Newf(xerrors.CorpusEmpty, "all %d corpus files failed to load: %s", len(paths), strings.Join(failures, "; "))
	}

	return idx, nil
}
