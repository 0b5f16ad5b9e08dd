package session

import (
	"context"
	"sort"
	"strconv"
	"time"

	"incgraph/internal/changeset"
	"incgraph/internal/logging"
	"incgraph/internal/source"

	"golang.org/x/sync/errgroup"
)

// scan parses every matched file under root and returns the readable ones as
// Added changesets ordered by key. It returns only once every parse is done.
func (s *Session) scan(ctx context.Context, root string, filter pathFilter, logger *logging.Logger) ([]changeset.Changeset, error) {
	started := time.Now()
	paths := source.Match(root, source.Extensions())

	kept := paths[:0]
	for _, path := range paths {
		if !filter.skip(path) {
			kept = append(kept, path)
		}
	}
	paths = kept

	results := make([]changeset.FileMetadata, len(paths))
	found := make([]bool, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.scanWorkers)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i], found[i] = s.parse(path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	batch := make([]changeset.Changeset, 0, len(paths))
	for i, meta := range results {
		if found[i] {
			batch = append(batch, changeset.Added(meta))
		}
	}
	sort.Slice(batch, func(a, b int) bool {
		return batch[a].Meta.Key < batch[b].Meta.Key
	})

	duration := time.Since(started)
	s.registry.RecordScan(len(batch), duration)
	logger.Component("scan").Info("initial scan complete", map[string]string{
		"matched":     strconv.Itoa(len(paths)),
		"parsed":      strconv.Itoa(len(batch)),
		"duration_ms": strconv.FormatInt(duration.Milliseconds(), 10),
	})
	return batch, nil
}
