package tilerecon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrFailedInference is matched by every *FailedInferenceError.
var ErrFailedInference = errors.New("failed to predict base tile")

// FailedInferenceError is returned in strict mode when a tile without a base
// has no resolved neighbor to infer one from.
type FailedInferenceError struct {
	Position image.Point
}

func (e *FailedInferenceError) Error() string {
	return fmt.Sprintf("%v at tile (%d,%d)", ErrFailedInference, e.Position.X, e.Position.Y)
}

func (e *FailedInferenceError) Unwrap() error { return ErrFailedInference }

// Stats summarizes one classification run.
type Stats struct {
	Tiles          int
	Exact          int
	BestEffort     int
	Predicted      int
	Unresolved     int
	Decorations    int
	StackedObjects int
	// Scores of the best-effort base matches, in tile order.
	BestEffortScores []float64
}

// Classifier assigns catalog tiles to the cells of a map. The catalog is
// only read, so one Classifier can serve many maps at once.
type Classifier struct {
	catalog *Catalog
	opt     Options
	Log     logrus.FieldLogger
}

func NewClassifier(c *Catalog, opt Options) *Classifier {
	return &Classifier{catalog: c, opt: opt, Log: logrus.StandardLogger()}
}

// Classify runs both passes over m. A map is classified once; its tiles are
// read-only afterwards.
func (c *Classifier) Classify(ctx context.Context, m *Map) (Stats, error) {
	log := c.Log.WithField("map", m.Name)

	start := time.Now()
	scans, err := c.scanAll(ctx, m)
	if err != nil {
		return Stats{}, err
	}
	for i, t := range m.Tiles {
		c.apply(m, t, scans[i])
	}
	log.WithField("pass", "match").Debugf("scanned %d tiles against %d tilesets in %s",
		len(m.Tiles), len(c.catalog.Tilesets), time.Since(start))

	start = time.Now()
	if err := c.infer(m); err != nil {
		return Stats{}, err
	}
	log.WithField("pass", "infer").Debugf("neighbor inference done in %s", time.Since(start))

	return collectStats(m), nil
}

// ============ PASS 1: MATCHING ============

type scanResult struct {
	exact     *TilesetTile
	best      *TilesetTile
	bestScore float64
}

func (c *Classifier) scanAll(ctx context.Context, m *Map) ([]scanResult, error) {
	results := make([]scanResult, len(m.Tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opt.workers())
	chunk := max(1, m.Width)
	for start := 0; start < len(m.Tiles); start += chunk {
		if gctx.Err() != nil {
			break
		}
		end := min(start+chunk, len(m.Tiles))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				results[i] = c.scan(m, m.Tiles[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// scan walks the catalog in registration order and stops at the first
// exact match. It only reads m, so scans of different tiles can run in
// parallel.
func (c *Classifier) scan(m *Map, t *MapTile) scanResult {
	var res scanResult
	for _, ts := range c.catalog.Tilesets {
		for _, tt := range ts.Tiles {
			score := tt.Pixels.Score(&t.Pixels, ts.IsDecorations)
			if tt.IsVoxel && score > 0 {
				// The cap above the voxel has to match the cell above too.
				capTile := ts.At(tt.Position.X, tt.Position.Y-1)
				above := m.At(t.Position.X, t.Position.Y-1)
				if capTile != nil && above != nil && capTile.Pixels.Score(&above.Pixels, false) != 1 {
					score = 0
				}
			}
			if score == 1 {
				res.exact = tt
				return res
			}
			if res.best == nil || score > res.bestScore {
				res.best = tt
				res.bestScore = score
			}
		}
	}
	return res
}

func (c *Classifier) apply(m *Map, t *MapTile, r scanResult) {
	if tt := r.exact; tt != nil {
		t.BestScore = 1
		ts := tt.Tileset
		switch {
		case ts.IsDecorations:
			t.DecorationTile = tt
		case tt.IsVoxel:
			t.StackedObjectTile = ts.At(tt.Position.X-1, tt.Position.Y)
		case tt.Ignored:
			// Top slice of a stacked prop: the prop itself stands on the
			// cell below.
			below := m.ByIndex(t.Index + m.Width)
			base := ts.At(tt.Position.X-1, tt.Position.Y+1)
			if below != nil && base != nil {
				below.StackedObjectTile = base
			}
		default:
			t.setBase(tt, Exact)
		}
		return
	}

	t.BestScore = r.bestScore
	b := r.best
	if b == nil || r.bestScore <= c.opt.BestEffortThreshold {
		return
	}
	if b.Tileset.IsDecorations || b.IsVoxel || b.Ignored {
		return
	}
	t.setBase(b, BestEffort)
}

// ============ PASS 2: NEIGHBOR INFERENCE ============

func (c *Classifier) infer(m *Map) error {
	var neighbors [4]*TilesetTile
	for _, t := range m.Tiles {
		if t.BaseTile != nil {
			continue
		}
		n := 0
		for _, idx := range [4]int{t.Index - 1, t.Index + 1, t.Index - m.Width, t.Index + m.Width} {
			if nb := m.ByIndex(idx); nb != nil && nb.BaseTile != nil {
				neighbors[n] = nb.BaseTile
				n++
			}
		}

		predicted := predictBase(neighbors[:n], t.StackedObjectTile != nil)
		if predicted == nil {
			if c.opt.StrictInference {
				return &FailedInferenceError{Position: t.Position}
			}
			continue
		}
		t.PredictedBaseTile = predicted
		t.Resolution = Predicted
	}
	return nil
}

// predictBase picks the first liquid neighbor unless the cell carries a
// stacked object, otherwise the most frequent neighbor, earliest on ties.
func predictBase(neighbors []*TilesetTile, hasStackedObject bool) *TilesetTile {
	if !hasStackedObject {
		for _, nb := range neighbors {
			if nb.IsLiquid {
				return nb
			}
		}
	}
	var best *TilesetTile
	bestCount := 0
	for _, cand := range neighbors {
		count := 0
		for _, other := range neighbors {
			if other == cand {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = cand, count
		}
	}
	return best
}

func collectStats(m *Map) Stats {
	s := Stats{Tiles: len(m.Tiles)}
	for _, t := range m.Tiles {
		switch t.Resolution {
		case Exact:
			s.Exact++
		case BestEffort:
			s.BestEffort++
			s.BestEffortScores = append(s.BestEffortScores, t.BestScore)
		case Predicted:
			s.Predicted++
		default:
			s.Unresolved++
		}
		if t.DecorationTile != nil {
			s.Decorations++
		}
		if t.StackedObjectTile != nil {
			s.StackedObjects++
		}
	}
	return s
}
