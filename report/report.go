// Package report explains a conversion: which tilesets were used, which
// cells stayed empty and how faithfully the exported document reproduces
// the source image.
package report

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/tilerecon"
	"github.com/setanarut/tilerecon/utils"
	"gonum.org/v1/gonum/stat"
)

// DefaultFamilies is the number of color families unresolved tiles are
// grouped into when the caller does not choose one.
const DefaultFamilies = 4

type TilesetUsage struct {
	Name     string `json:"name"`
	FirstGID int    `json:"firstgid,omitempty"`
	Cells    int    `json:"cells"`
	Unused   bool   `json:"unused,omitempty"`
}

type UnresolvedTile struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	Family int    `json:"family"`
}

type ColorFamily struct {
	Color string `json:"color"`
	Tiles int    `json:"tiles"`
	color colorful.Color
}

type Report struct {
	Map        string           `json:"map"`
	JobID      string           `json:"job_id"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Stats      tilerecon.Stats  `json:"stats"`
	Tilesets   []TilesetUsage   `json:"tilesets"`
	Unresolved []UnresolvedTile `json:"unresolved"`
	Families   []ColorFamily    `json:"families"`
	// Mean and standard deviation of best-effort match scores.
	ScoreMean   float64 `json:"score_mean"`
	ScoreStdDev float64 `json:"score_stddev"`
	// Mean exact score of every source tile against the rendered document.
	Fidelity float64 `json:"fidelity"`
	// Mean CIE76 distance over the pixels the rendered document gets wrong.
	MeanDeltaE float64 `json:"mean_delta_e"`
}

// Build inspects a finished conversion. families caps the number of color
// groups for unresolved tiles; 0 or less uses DefaultFamilies.
func Build(res *tilerecon.Result, c *tilerecon.Catalog, families int) (*Report, error) {
	if res == nil || res.Map == nil || res.Document == nil {
		return nil, fmt.Errorf("report: incomplete conversion result")
	}
	if families <= 0 {
		families = DefaultFamilies
	}
	m := res.Map
	r := &Report{
		Map:        m.Name,
		JobID:      res.JobID,
		Width:      m.Width,
		Height:     m.Height,
		Stats:      res.Stats,
		Tilesets:   usage(res.Document, c),
		Unresolved: []UnresolvedTile{},
		Families:   []ColorFamily{},
	}

	r.ScoreMean, r.ScoreStdDev = meanStdDev(res.Stats.BestEffortScores)

	if err := r.unresolved(m, families); err != nil {
		return nil, err
	}

	rendered, err := tilerecon.RenderDocument(res.Document, c)
	if err != nil {
		return nil, fmt.Errorf("report: render %q: %w", m.Name, err)
	}
	r.Fidelity, r.MeanDeltaE = fidelity(m, rendered)
	return r, nil
}

// Palette returns the family colors from darkest to brightest.
func (r *Report) Palette() []colorful.Color {
	out := make([]colorful.Color, 0, len(r.Families))
	for _, f := range r.Families {
		out = append(out, f.color)
	}
	utils.SortPaletteByBrightness(out)
	return out
}

// usage counts exported cells per tileset record, then appends the catalog
// tilesets the document never references.
func usage(doc *tilerecon.Document, c *tilerecon.Catalog) []TilesetUsage {
	cells := make(map[*tilerecon.TilesetRecord]int, len(doc.Tilesets))
	for _, l := range doc.Layers {
		tl, ok := l.(*tilerecon.TileLayer)
		if !ok {
			continue
		}
		for _, gid := range tl.Data {
			if rec := doc.Tileset(gid); rec != nil {
				cells[rec]++
			}
		}
	}

	out := make([]TilesetUsage, 0, len(c.Tilesets))
	seen := make(map[*tilerecon.Tileset]bool, len(doc.Tilesets))
	named := make(map[string]bool)
	for _, rec := range doc.Tilesets {
		out = append(out, TilesetUsage{Name: rec.Name, FirstGID: rec.FirstGID, Cells: cells[rec]})
		if ts := doc.Source(rec); ts != nil {
			seen[ts] = true
		} else {
			named[rec.Name] = true
		}
	}
	for _, ts := range c.Tilesets {
		if !seen[ts] && !named[ts.Name] {
			out = append(out, TilesetUsage{Name: ts.Name, Unused: true})
		}
	}
	return out
}

func (r *Report) unresolved(m *tilerecon.Map, families int) error {
	var colors []colorful.Color
	for _, t := range m.Tiles {
		if t.Base() != nil {
			continue
		}
		c := utils.DominantColor(t.Pixels.Image())
		colors = append(colors, c)
		r.Unresolved = append(r.Unresolved, UnresolvedTile{X: t.Position.X, Y: t.Position.Y, Color: c.Hex()})
	}
	if len(colors) == 0 {
		return nil
	}

	labels, centers, err := utils.GroupColors(colors, families)
	if err != nil {
		return fmt.Errorf("report: group colors: %w", err)
	}
	counts := make([]int, len(centers))
	for i, l := range labels {
		r.Unresolved[i].Family = l
		counts[l]++
	}
	for i, c := range centers {
		r.Families = append(r.Families, ColorFamily{Color: c.Hex(), Tiles: counts[i], color: c})
	}
	return nil
}

func meanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

func fidelity(m *tilerecon.Map, rendered *image.NRGBA) (score, deltaE float64) {
	if len(m.Tiles) == 0 {
		return 1, 0
	}
	scores := make([]float64, 0, len(m.Tiles))
	var deltas []float64
	for _, t := range m.Tiles {
		got := cell(rendered, t.Position)
		scores = append(scores, t.Pixels.Score(&got, false))
		for i := 0; i < len(got); i += 4 {
			if slices.Equal(t.Pixels[i:i+4], got[i:i+4]) {
				continue
			}
			deltas = append(deltas, distance(t.Pixels[i:i+4], got[i:i+4]))
		}
	}
	score = stat.Mean(scores, nil)
	if len(deltas) > 0 {
		deltaE = stat.Mean(deltas, nil)
	}
	return score, deltaE
}

func cell(img *image.NRGBA, pos image.Point) tilerecon.PixelBlock {
	var b tilerecon.PixelBlock
	x0, y0 := pos.X*tilerecon.TileSize, pos.Y*tilerecon.TileSize
	for row := range tilerecon.TileSize {
		off := img.PixOffset(x0, y0+row)
		copy(b[row*tilerecon.TileSize*4:(row+1)*tilerecon.TileSize*4], img.Pix[off:off+tilerecon.TileSize*4])
	}
	return b
}

// distance compares two NRGBA pixels in Lab space; transparency is treated
// as black.
func distance(a, b []byte) float64 {
	ca, _ := colorful.MakeColor(color.NRGBA{R: a[0], G: a[1], B: a[2], A: a[3]})
	cb, _ := colorful.MakeColor(color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]})
	d := ca.DistanceCIE76(cb)
	if math.IsNaN(d) {
		return 0
	}
	return d
}
