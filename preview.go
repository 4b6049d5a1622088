package tilerecon

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
)

// renderedLayers are composited bottom to top. stacked_objects only holds
// marker tiles and is not drawn.
var renderedLayers = []string{LayerBaseTiles, LayerDecorations, LayerSOVisuals}

// RenderDocument draws doc back into a flat image using the catalog's tile
// pixels. Records keep the tileset Export took them from when it belongs to
// c; other records are matched to catalog tilesets by name.
func RenderDocument(doc *Document, c *Catalog) (*image.NRGBA, error) {
	sets := make(map[*TilesetRecord]*Tileset, len(doc.Tilesets))
	for _, rec := range doc.Tilesets {
		ts := doc.Source(rec)
		if ts == nil || !slices.Contains(c.Tilesets, ts) {
			ts = c.Lookup(rec.Name)
		}
		if ts == nil {
			return nil, fmt.Errorf("tileset %q is not in the catalog", rec.Name)
		}
		sets[rec] = ts
	}

	dst := image.NewNRGBA(image.Rect(0, 0, doc.Width*TileSize, doc.Height*TileSize))
	for _, name := range renderedLayers {
		layer := doc.TileLayer(name)
		if layer == nil {
			continue
		}
		for i, gid := range layer.Data {
			if gid == 0 {
				continue
			}
			rec := doc.Tileset(gid)
			if rec == nil {
				return nil, fmt.Errorf("layer %s cell %d: gid %d belongs to no tileset", name, i, gid)
			}
			ts := sets[rec]
			local := gid - rec.FirstGID
			tile := ts.At(local%ts.GridSize.X, local/ts.GridSize.X)
			if tile == nil {
				continue
			}
			x, y := (i%doc.Width)*TileSize, (i/doc.Width)*TileSize
			draw.Draw(dst, image.Rect(x, y, x+TileSize, y+TileSize), tile.Pixels.Image(), image.Point{}, draw.Over)
		}
	}
	return dst, nil
}
