package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/cookgest/internal/recipe"
)

// BatchResult is the outcome of converting one file in a batch.
type BatchResult struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`

	Err error `json:"-"`
}

// OK reports whether the file converted.
func (r BatchResult) OK() bool { return r.Err == nil }

// RunBatch converts paths with at most workers conversions in flight. A
// failing document does not stop the others. Results are in input order;
// documents not started before ctx is cancelled carry ctx.Err().
func (c *Converter) RunBatch(ctx context.Context, paths []string, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]BatchResult, len(paths))
	for i, p := range paths {
		results[i] = BatchResult{Path: p, Name: recipe.NameFromPath(p)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range paths {
		if gctx.Err() != nil {
			results[i].fail(gctx.Err())
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].fail(err)
				return nil
			}
			_, out, err := c.ConvertFile(p)
			if err != nil {
				c.log.Warn("conversion failed", "path", p, "error", err)
				results[i].fail(err)
				return nil
			}
			results[i].Output = out
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	c.log.Info("batch complete", "documents", len(paths), "failed", failed)
	return results
}

func (r *BatchResult) fail(err error) {
	r.Err = err
	r.Error = err.Error()
	r.Kind = string(recipe.CodeOf(err))
}
