package tilerecon

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Converter turns flattened map images into Tiled documents against one
// catalog. The catalog must be fully built before the first conversion.
type Converter struct {
	Catalog *Catalog
	Options Options
	Log     logrus.FieldLogger
}

func NewConverter(catalog *Catalog, opt Options) *Converter {
	return &Converter{
		Catalog: catalog,
		Options: opt,
		Log:     logrus.StandardLogger(),
	}
}

// Result is the outcome of converting one map.
type Result struct {
	JobID    string
	Map      *Map
	Stats    Stats
	Document *Document
	// Catalog tilesets that no exported cell refers to.
	Unidentified []*Tileset
}

// JSON encodes the result's document, see Document.Marshal.
func (r *Result) JSON(indent bool) ([]byte, error) {
	return r.Document.Marshal(indent)
}

// Convert slices an NRGBA buffer of width x height pixels, classifies it and
// exports it. name identifies the map in logs and results.
func (c *Converter) Convert(ctx context.Context, name string, pix []byte, width, height int) (*Result, error) {
	return c.convert(ctx, name, pix, width, height, c.Options)
}

// ConvertImage is Convert over a decoded image.
func (c *Converter) ConvertImage(ctx context.Context, name string, img image.Image) (*Result, error) {
	pix, w, h := CanvasPixels(img)
	return c.Convert(ctx, name, pix, w, h)
}

func (c *Converter) convert(ctx context.Context, name string, pix []byte, width, height int, opt Options) (*Result, error) {
	res := &Result{JobID: uuid.NewString()}
	log := c.Log.WithFields(logrus.Fields{"map": name, "job": res.JobID})
	start := time.Now()

	m, err := NewMap(name, pix, width, height)
	if err != nil {
		return nil, err
	}
	res.Map = m
	log.Debugf("sliced %dx%d tiles, %d non-empty", m.Width, m.Height, len(m.Tiles))

	cl := NewClassifier(c.Catalog, opt)
	cl.Log = log
	if res.Stats, err = cl.Classify(ctx, m); err != nil {
		return nil, err
	}

	res.Document = Export(m)
	res.Unidentified = unidentified(c.Catalog, m)
	for _, ts := range res.Unidentified {
		log.WithField("tileset", ts.Name).Warn("tileset could not be identified within the map image")
	}

	s := res.Stats
	log.Infof("converted %d tiles in %s: %d exact, %d best-effort, %d predicted, %d unresolved, %d decorations, %d stacked objects",
		s.Tiles, time.Since(start).Round(time.Millisecond), s.Exact, s.BestEffort, s.Predicted, s.Unresolved, s.Decorations, s.StackedObjects)
	return res, nil
}

func unidentified(c *Catalog, m *Map) []*Tileset {
	used := make(map[int]bool)
	for _, t := range m.Tiles {
		for _, ref := range [...]*TilesetTile{t.Base(), t.DecorationTile, t.StackedObjectTile} {
			if ref != nil {
				used[ref.Tileset.ID] = true
			}
		}
	}
	var out []*Tileset
	for _, ts := range c.Tilesets {
		if !used[ts.ID] {
			out = append(out, ts)
		}
	}
	return out
}
