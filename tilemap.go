package tilerecon

import (
	"fmt"
	"image"
)

// Resolution records how a map tile got its base visual.
type Resolution int

const (
	Unresolved Resolution = iota
	Exact
	BestEffort
	Predicted
)

func (r Resolution) String() string {
	switch r {
	case Exact:
		return "exact"
	case BestEffort:
		return "best-effort"
	case Predicted:
		return "predicted"
	default:
		return "unresolved"
	}
}

// MapTile is one non-empty 8x8 cell of the flattened map image. The tile
// references are filled by the classifier and point into the catalog.
type MapTile struct {
	Position image.Point
	Index    int // y*width + x
	Pixels   PixelBlock

	BaseTile          *TilesetTile
	DecorationTile    *TilesetTile
	StackedObjectTile *TilesetTile
	// Set by neighbor inference, only when BaseTile is nil.
	PredictedBaseTile *TilesetTile

	Resolution Resolution
	// Highest non-exact score seen while matching.
	BestScore float64
}

// Base returns the tile drawn in the base layer: BaseTile, else
// PredictedBaseTile.
func (t *MapTile) Base() *TilesetTile {
	if t.BaseTile != nil {
		return t.BaseTile
	}
	return t.PredictedBaseTile
}

func (t *MapTile) setBase(tile *TilesetTile, how Resolution) {
	if t.BaseTile != nil {
		return
	}
	t.BaseTile = tile
	t.Resolution = how
}

type Map struct {
	Name   string
	Width  int // in tiles
	Height int
	Tiles  []*MapTile // non-empty tiles, row-major

	grid []*MapTile
}

// NewMap slices an NRGBA buffer into map tiles.
func NewMap(name string, pix []byte, width, height int) (*Map, error) {
	sliced, err := Slice(pix, width, height)
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", name, err)
	}
	m := &Map{
		Name:   name,
		Width:  width / TileSize,
		Height: height / TileSize,
		Tiles:  make([]*MapTile, 0, len(sliced)),
	}
	m.grid = make([]*MapTile, m.Width*m.Height)
	for _, s := range sliced {
		t := &MapTile{
			Position: s.Position,
			Index:    s.Position.Y*m.Width + s.Position.X,
			Pixels:   s.Pixels,
		}
		m.Tiles = append(m.Tiles, t)
		m.grid[t.Index] = t
	}
	return m, nil
}

// NewMapFromImage is NewMap over a decoded image.
func NewMapFromImage(name string, img image.Image) (*Map, error) {
	pix, w, h := CanvasPixels(img)
	return NewMap(name, pix, w, h)
}

// At returns the tile at (x, y), or nil when out of range or empty.
func (m *Map) At(x, y int) *MapTile {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return nil
	}
	return m.grid[y*m.Width+x]
}

// ByIndex returns the tile with the given row-major index, or nil.
func (m *Map) ByIndex(i int) *MapTile {
	if i < 0 || i >= len(m.grid) {
		return nil
	}
	return m.grid[i]
}

// TileView is the read-only view of one map cell shown by previews.
type TileView struct {
	Position      image.Point
	Base          *TilesetTile
	BasePredicted bool
	Decoration    *TilesetTile
	StackedObject *TilesetTile
}

// Pixels returns the pixel blocks of the base, decoration and stacked
// object tiles; absent layers are nil.
func (v TileView) Pixels() (base, decoration, stackedObject *PixelBlock) {
	return pixelsOf(v.Base), pixelsOf(v.Decoration), pixelsOf(v.StackedObject)
}

func pixelsOf(t *TilesetTile) *PixelBlock {
	if t == nil {
		return nil
	}
	return &t.Pixels
}

// Inspect returns the classified layers of the cell at (x, y). ok is false
// when the cell is outside the map or was empty in the source image.
func (m *Map) Inspect(x, y int) (v TileView, ok bool) {
	t := m.At(x, y)
	if t == nil {
		return TileView{}, false
	}
	return TileView{
		Position:      t.Position,
		Base:          t.Base(),
		BasePredicted: t.BaseTile == nil && t.PredictedBaseTile != nil,
		Decoration:    t.DecorationTile,
		StackedObject: t.StackedObjectTile,
	}, true
}
