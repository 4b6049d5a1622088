package tilerecon

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

// pattern is a non-uniform opaque tile. Different seeds differ in every
// pixel.
func pattern(seed byte) PixelBlock {
	var b PixelBlock
	for i := 0; i < blockLen; i += 4 {
		b[i] = seed
		b[i+1] = byte(i / 4)
		b[i+2] = 255 - seed
		b[i+3] = 255
	}
	return b
}

func solid(r, g, b, a byte) PixelBlock {
	var blk PixelBlock
	for i := 0; i < blockLen; i += 4 {
		blk[i], blk[i+1], blk[i+2], blk[i+3] = r, g, b, a
	}
	return blk
}

// mutate changes the green channel of the first n pixels.
func mutate(b PixelBlock, n int) PixelBlock {
	for p := range n {
		b[p*4+1] ^= 0x80
	}
	return b
}

// overlay draws the opaque pixels of top over b.
func overlay(b, top PixelBlock) PixelBlock {
	for i := 0; i < blockLen; i += 4 {
		if top[i+3] != 0 {
			copy(b[i:i+4], top[i:i+4])
		}
	}
	return b
}

// sheet is a tile-aligned NRGBA buffer built cell by cell.
type sheet struct {
	cols, rows int
	pix        []byte
}

func newSheet(cols, rows int) *sheet {
	return &sheet{cols: cols, rows: rows, pix: make([]byte, cols*rows*blockLen)}
}

func (s *sheet) put(x, y int, b PixelBlock) *sheet {
	stride := s.cols * TileSize * 4
	for row := range TileSize {
		off := (y*TileSize+row)*stride + x*TileSize*4
		copy(s.pix[off:off+TileSize*4], b[row*TileSize*4:(row+1)*TileSize*4])
	}
	return s
}

func (s *sheet) width() int  { return s.cols * TileSize }
func (s *sheet) height() int { return s.rows * TileSize }

func (s *sheet) source(name string) TilesetSource {
	return TilesetSource{Name: name, Pixels: s.pix, Width: s.width(), Height: s.height()}
}

func imageOf(s *sheet) *image.NRGBA {
	return &image.NRGBA{Pix: s.pix, Stride: s.width() * 4, Rect: image.Rect(0, 0, s.width(), s.height())}
}

func (s *sheet) newMap(t *testing.T) *Map {
	t.Helper()
	m, err := NewMap("test", s.pix, s.width(), s.height())
	require.NoError(t, err)
	return m
}

func newTestCatalog(t *testing.T, opt Options, sets map[string]*sheet, order ...string) *Catalog {
	t.Helper()
	c := NewCatalog(opt)
	for _, name := range order {
		_, err := c.Add(sets[name].source(name))
		require.NoError(t, err)
	}
	return c
}

func classify(t *testing.T, c *Catalog, opt Options, m *Map) Stats {
	t.Helper()
	s, err := NewClassifier(c, opt).Classify(t.Context(), m)
	require.NoError(t, err)
	return s
}
