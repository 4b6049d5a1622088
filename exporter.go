package tilerecon

import (
	"encoding/json"
	"image"
)

// Layer names of an exported map, in document order.
const (
	LayerBaseTiles      = "base_tiles"
	LayerDecorations    = "decorations"
	LayerStackedObjects = "stacked_objects"
	LayerSOVisuals      = "SO_visuals"
	LayerRegions        = "regions"
	LayerGameObjects    = "gameobjects"
)

const (
	tiledVersion  = "1.11.2"
	formatVersion = "1.10"
)

// Document is a Tiled JSON map. Field order matches the files the editor
// pipeline already consumes.
type Document struct {
	Layers           []any            `json:"layers"`
	Tilesets         []*TilesetRecord `json:"tilesets"`
	Width            int              `json:"width"`
	Height           int              `json:"height"`
	TileWidth        int              `json:"tilewidth"`
	TileHeight       int              `json:"tileheight"`
	NextObjectID     int              `json:"nextobjectid"`
	NextLayerID      int              `json:"nextlayerid"`
	Infinite         bool             `json:"infinite"`
	CompressionLevel int              `json:"compressionlevel"`
	Orientation      string           `json:"orientation"`
	RenderOrder      string           `json:"renderorder"`
	Type             string           `json:"type"`
	TiledVersion     string           `json:"tiledversion"`
	Version          string           `json:"version"`

	// catalog tileset behind each record; empty for decoded documents
	sources map[*TilesetRecord]*Tileset
}

type TileLayer struct {
	Class   string  `json:"class"`
	Name    string  `json:"name"`
	Data    []int   `json:"data"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	ID      int     `json:"id"`
	Opacity float64 `json:"opacity"`
	Type    string  `json:"type"`
	Visible bool    `json:"visible"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
}

type ObjectLayer struct {
	Class     string  `json:"class"`
	DrawOrder string  `json:"draworder"`
	Name      string  `json:"name"`
	Objects   []any   `json:"objects"`
	Opacity   float64 `json:"opacity"`
	Type      string  `json:"type"`
	Visible   bool    `json:"visible"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
}

type TilesetRecord struct {
	Columns     int    `json:"columns"`
	FirstGID    int    `json:"firstgid"`
	ImageWidth  int    `json:"imagewidth"`
	ImageHeight int    `json:"imageheight"`
	Image       string `json:"image"`
	Name        string `json:"name"`
	TileCount   int    `json:"tilecount"`
	TileHeight  int    `json:"tileheight"`
	TileWidth   int    `json:"tilewidth"`
	Margin      int    `json:"margin"`
	Spacing     int    `json:"spacing"`
}

// TileLayer returns the tile layer with the given name, or nil.
func (d *Document) TileLayer(name string) *TileLayer {
	for _, l := range d.Layers {
		if tl, ok := l.(*TileLayer); ok && tl.Name == name {
			return tl
		}
	}
	return nil
}

// Tileset returns the record that owns gid, or nil for 0 and unknown gids.
func (d *Document) Tileset(gid int) *TilesetRecord {
	if gid <= 0 {
		return nil
	}
	for _, rec := range d.Tilesets {
		if gid >= rec.FirstGID && gid < rec.FirstGID+rec.TileCount {
			return rec
		}
	}
	return nil
}

// Source returns the catalog tileset rec was exported from, or nil when the
// document was not built by Export.
func (d *Document) Source(rec *TilesetRecord) *Tileset {
	return d.sources[rec]
}

// Marshal encodes the document as compact JSON, or with two-space
// indentation when indent is set.
func (d *Document) Marshal(indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(d, "", "  ")
	}
	return json.Marshal(d)
}

type exporter struct {
	doc       *Document
	width     int
	cells     int
	byTileset map[int]*TilesetRecord
}

// Export writes the classified tiles of m into a new Document. Tilesets are
// registered the first time one of their tiles is written while walking the
// map row-major, so firstgid values follow first use, not catalog order.
func Export(m *Map) *Document {
	e := &exporter{
		width:     m.Width,
		cells:     m.Width * m.Height,
		byTileset: make(map[int]*TilesetRecord),
	}
	layerID := 0
	newLayer := func(name string) *TileLayer {
		l := &TileLayer{
			Class:   name,
			Name:    name,
			Data:    make([]int, e.cells),
			Width:   m.Width,
			Height:  m.Height,
			ID:      layerID,
			Opacity: 1,
			Type:    "tilelayer",
			Visible: true,
		}
		layerID++
		return l
	}
	base := newLayer(LayerBaseTiles)
	decorations := newLayer(LayerDecorations)
	stacked := newLayer(LayerStackedObjects)
	visuals := newLayer(LayerSOVisuals)

	e.doc = &Document{
		Layers:           []any{base, decorations, stacked, visuals, newObjectLayer(LayerRegions), newObjectLayer(LayerGameObjects)},
		Tilesets:         []*TilesetRecord{},
		Width:            m.Width,
		Height:           m.Height,
		TileWidth:        TileSize,
		TileHeight:       TileSize,
		NextObjectID:     9,
		NextLayerID:      9,
		Infinite:         false,
		CompressionLevel: -1,
		Orientation:      "orthogonal",
		RenderOrder:      "right-down",
		Type:             "map",
		TiledVersion:     tiledVersion,
		Version:          formatVersion,
		sources:          make(map[*TilesetRecord]*Tileset),
	}

	for _, t := range m.Tiles {
		if b := t.Base(); b != nil {
			e.write(base, t.Position, b)
		}
		if t.DecorationTile != nil {
			e.write(decorations, t.Position, t.DecorationTile)
		}
		if so := t.StackedObjectTile; so != nil {
			e.write(stacked, t.Position, so)
			// The prop art sits one column right of its marker tile, one
			// cell tall plus an optional cap above.
			if v := so.Tileset.At(so.Position.X+1, so.Position.Y); v != nil {
				e.write(visuals, t.Position, v)
			}
			if v := so.Tileset.At(so.Position.X+1, so.Position.Y-1); v != nil {
				e.write(visuals, t.Position.Add(image.Pt(0, -1)), v)
			}
		}
	}
	return e.doc
}

func newObjectLayer(name string) *ObjectLayer {
	return &ObjectLayer{
		Class:     name,
		DrawOrder: "topdown",
		Name:      name,
		Objects:   []any{},
		Opacity:   1,
		Type:      "objectgroup",
		Visible:   true,
	}
}

func (e *exporter) record(ts *Tileset) *TilesetRecord {
	if rec, ok := e.byTileset[ts.ID]; ok {
		return rec
	}
	firstGID := 1
	if n := len(e.doc.Tilesets); n > 0 {
		last := e.doc.Tilesets[n-1]
		firstGID = last.FirstGID + last.TileCount
	}
	rec := &TilesetRecord{
		Columns:     ts.GridSize.X,
		FirstGID:    firstGID,
		ImageWidth:  ts.GridSize.X * TileSize,
		ImageHeight: ts.GridSize.Y * TileSize,
		Image:       ts.ImagePath(),
		Name:        ts.Name,
		TileCount:   ts.TileCount(),
		TileHeight:  TileSize,
		TileWidth:   TileSize,
	}
	e.doc.Tilesets = append(e.doc.Tilesets, rec)
	e.byTileset[ts.ID] = rec
	e.doc.sources[rec] = ts
	return rec
}

// write registers the tile's tileset even when the cell falls outside the
// layer; such writes are dropped.
func (e *exporter) write(layer *TileLayer, pos image.Point, tile *TilesetTile) {
	rec := e.record(tile.Tileset)
	i := pos.Y*e.width + pos.X
	if i < 0 || i >= len(layer.Data) {
		return
	}
	layer.Data[i] = rec.FirstGID + tile.LocalIndex
}
