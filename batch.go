package tilerecon

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
)

// MapSource is one input of a batch. Load is called from a worker
// goroutine, so images are only decoded while they are being converted.
type MapSource struct {
	Name string
	Load func() (image.Image, error)
}

// BatchResult holds either the converted map or the error that skipped it.
type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// ConvertBatch converts every source against the shared catalog, up to
// Options.Workers maps at a time. A failing map is recorded and skipped.
// Once ctx is done no further maps are started; their results carry
// ctx.Err(). Results are in source order.
func (c *Converter) ConvertBatch(ctx context.Context, sources []MapSource) []BatchResult {
	results := make([]BatchResult, len(sources))
	opt := c.Options
	// Maps already run in parallel; each one is scanned on a single worker.
	opt.Workers = 1

	var g errgroup.Group
	g.SetLimit(c.Options.workers())
	for i, src := range sources {
		results[i].Name = src.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			res, err := c.convertSource(ctx, src, opt)
			if err != nil {
				c.Log.WithField("map", src.Name).Warnf("skipping map: %v", err)
			}
			results[i].Result, results[i].Err = res, err
			return nil
		})
	}
	_ = g.Wait()

	converted := 0
	for _, r := range results {
		if r.Err == nil {
			converted++
		}
	}
	c.Log.Infof("batch finished: %d of %d maps converted", converted, len(sources))
	return results
}

func (c *Converter) convertSource(ctx context.Context, src MapSource, opt Options) (*Result, error) {
	if src.Load == nil {
		return nil, fmt.Errorf("map %q has no loader", src.Name)
	}
	img, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("load map %q: %w", src.Name, err)
	}
	pix, w, h := CanvasPixels(img)
	return c.convert(ctx, src.Name, pix, w, h, opt)
}
