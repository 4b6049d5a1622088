package tilerecon

import (
	"fmt"
	"image"
	"strings"
)

// TilesetTile is one non-empty tile of a tileset image. It is owned by its
// Tileset; map tiles only point at it.
type TilesetTile struct {
	Position   image.Point
	LocalIndex int // y*columns + x
	Pixels     PixelBlock
	// Base slice of a stacked prop: the tile to its left is a flat
	// opaque color block.
	IsVoxel bool
	// Occluded top slice of a stacked prop, never matched as a base tile.
	Ignored  bool
	IsLiquid bool
	Tileset  *Tileset
}

type Tileset struct {
	ID            int
	Name          string
	FileName      string
	CustomPath    string
	IsDecorations bool
	IsLiquid      bool
	GridSize      image.Point // columns, rows
	Tiles         []*TilesetTile

	grid []*TilesetTile
}

// At returns the tile at grid position (x, y), or nil when the cell is
// outside the tileset or empty.
func (ts *Tileset) At(x, y int) *TilesetTile {
	if x < 0 || y < 0 || x >= ts.GridSize.X || y >= ts.GridSize.Y {
		return nil
	}
	return ts.grid[y*ts.GridSize.X+x]
}

// TileCount is the number of grid cells, empty ones included.
func (ts *Tileset) TileCount() int {
	return ts.GridSize.X * ts.GridSize.Y
}

// SetCustomPath overrides the image path written to exported maps. A blank
// path removes the override.
func (ts *Tileset) SetCustomPath(p string) {
	ts.CustomPath = strings.TrimSpace(p)
}

// ImagePath is the path exported maps reference for this tileset.
func (ts *Tileset) ImagePath() string {
	p := ts.CustomPath
	if p == "" {
		p = ts.FileName
	}
	if p == "" {
		p = ts.Name + ".png"
	}
	return strings.ReplaceAll(p, `\`, "/")
}

// TilesetSource is a decoded tileset image handed over by the caller.
type TilesetSource struct {
	Name       string // display name, usually the file name without extension
	FileName   string
	CustomPath string
	Pixels     []byte // NRGBA, stride Width*4
	Width      int
	Height     int
}

// NewTilesetSource converts img with CanvasPixels.
func NewTilesetSource(name, fileName string, img image.Image) TilesetSource {
	pix, w, h := CanvasPixels(img)
	return TilesetSource{Name: name, FileName: fileName, Pixels: pix, Width: w, Height: h}
}

// Catalog holds every tileset imported during one run, in registration
// order. Tilesets are never changed once added, apart from their custom
// path.
type Catalog struct {
	Tilesets []*Tileset

	decorationsKeyword string
	liquidKeywords     []string
	nextID             int
}

func NewCatalog(opt Options) *Catalog {
	return &Catalog{
		decorationsKeyword: opt.DecorationsKeyword,
		liquidKeywords:     opt.LiquidKeywords,
	}
}

// Add slices src and registers it as the next tileset. A rejected image
// leaves the catalog untouched and does not consume an id.
func (c *Catalog) Add(src TilesetSource) (*Tileset, error) {
	sliced, err := Slice(src.Pixels, src.Width, src.Height)
	if err != nil {
		return nil, fmt.Errorf("tileset %q: %w", src.Name, err)
	}

	ts := &Tileset{
		ID:            c.nextID,
		Name:          src.Name,
		FileName:      src.FileName,
		IsDecorations: c.decorationsKeyword != "" && strings.Contains(src.Name, c.decorationsKeyword),
		IsLiquid:      c.isLiquid(src.Name),
		GridSize:      image.Pt(src.Width/TileSize, src.Height/TileSize),
		Tiles:         make([]*TilesetTile, 0, len(sliced)),
	}
	if ts.FileName == "" {
		ts.FileName = src.Name + ".png"
	}
	ts.SetCustomPath(src.CustomPath)
	ts.grid = make([]*TilesetTile, ts.TileCount())

	var prev *TilesetTile
	for _, s := range sliced {
		x, y := s.Position.X, s.Position.Y
		tile := &TilesetTile{
			Position:   s.Position,
			LocalIndex: y*ts.GridSize.X + x,
			Pixels:     s.Pixels,
			IsLiquid:   ts.IsLiquid,
			Tileset:    ts,
		}
		if prev != nil && prev.Position.Y == y && prev.Position.X == x-1 && prev.Pixels.IsUniformColor() {
			tile.IsVoxel = true
			if top := ts.At(x, y-1); top != nil {
				top.Ignored = true
			}
		}
		ts.Tiles = append(ts.Tiles, tile)
		ts.grid[tile.LocalIndex] = tile
		prev = tile
	}

	c.nextID++
	c.Tilesets = append(c.Tilesets, ts)
	return ts, nil
}

// Lookup returns the first registered tileset with the given name.
func (c *Catalog) Lookup(name string) *Tileset {
	for _, ts := range c.Tilesets {
		if ts.Name == name {
			return ts
		}
	}
	return nil
}

func (c *Catalog) isLiquid(name string) bool {
	for _, kw := range c.liquidKeywords {
		if kw != "" && strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
