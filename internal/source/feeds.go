// Package source loads pipeline inputs from disk: raw candidate feeds,
// the district reference table, district geometries and JSON collections
// produced by earlier stages.
package source

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-judicatura/internal/domain"
	"github.com/ahrav/go-judicatura/internal/normalize"
)

// DefaultFeedConcurrency bounds parallel feed reads.
const DefaultFeedConcurrency = 4

// Feed is the decoded content of one category feed file.
type Feed struct {
	Category string
	Path     string
	Records  []domain.RawRecord
}

// LoadFeeds reads every category feed in parallel. Feeds are returned
// sorted by category. A missing file is skipped with a warning; any other
// read or decode failure cancels the remaining reads and is returned.
func LoadFeeds(ctx context.Context, paths map[string]string, logger *zap.Logger) ([]Feed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	categories := make([]string, 0, len(paths))
	for c := range paths {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	feeds := make([]*Feed, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultFeedConcurrency)

	for i, category := range categories {
		path := paths[category]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, err := readFeed(path)
			if os.IsNotExist(err) {
				logger.Warn("feed file not found", zap.String("category", category), zap.String("path", path))
				return nil
			}
			if err != nil {
				return fmt.Errorf("feed %s: %w", category, err)
			}
			feeds[i] = &Feed{Category: category, Path: path, Records: records}
			logger.Debug("feed loaded", zap.String("category", category), zap.Int("records", len(records)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Feed, 0, len(feeds))
	for _, f := range feeds {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

func readFeed(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return normalize.DecodeFeed(f)
}
