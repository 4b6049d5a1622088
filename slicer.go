package tilerecon

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// TileSize is the edge length of every tile in pixels.
const TileSize = 8

const blockLen = TileSize * TileSize * 4

// ErrInvalidDimensions is matched by every *InvalidDimensionsError.
var ErrInvalidDimensions = errors.New("image dimensions must be multiples of 8")

// InvalidDimensionsError rejects a map or tileset image that is not 8-aligned.
type InvalidDimensionsError struct {
	Width, Height int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid image size %dx%d: must be positive multiples of %d", e.Width, e.Height, TileSize)
}

func (e *InvalidDimensionsError) Unwrap() error { return ErrInvalidDimensions }

// PixelBlock is one 8x8 tile as non-premultiplied RGBA bytes, row-major.
type PixelBlock [blockLen]byte

// IsEmpty reports whether every channel of every pixel is zero.
func (b *PixelBlock) IsEmpty() bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// IsUniformColor reports whether the block is fully opaque and every pixel
// shares the RGB of the first one.
func (b *PixelBlock) IsUniformColor() bool {
	r, g, bl := b[0], b[1], b[2]
	for i := 0; i < blockLen; i += 4 {
		if b[i+3] != 255 {
			return false
		}
		if b[i] != r || b[i+1] != g || b[i+2] != bl {
			return false
		}
	}
	return true
}

// Image returns a copy of the block as an 8x8 NRGBA image.
func (b *PixelBlock) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, TileSize, TileSize))
	copy(img.Pix, b[:])
	return img
}

// SlicedTile is a non-empty tile cut from a larger buffer.
type SlicedTile struct {
	Position image.Point
	Pixels   PixelBlock
}

// Grid returns the size in tiles of a width x height pixel image, or an
// *InvalidDimensionsError if it cannot be cut into whole tiles.
func Grid(width, height int) (image.Point, error) {
	if width <= 0 || height <= 0 || width%TileSize != 0 || height%TileSize != 0 {
		return image.Point{}, &InvalidDimensionsError{Width: width, Height: height}
	}
	return image.Pt(width/TileSize, height/TileSize), nil
}

// Slice cuts an RGBA buffer of width*height pixels (stride width*4) into
// tiles, rows outer and columns inner. Empty tiles are left out.
func Slice(pix []byte, width, height int) ([]SlicedTile, error) {
	grid, err := Grid(width, height)
	if err != nil {
		return nil, err
	}
	if len(pix) < width*height*4 {
		return nil, fmt.Errorf("pixel buffer holds %d bytes, want %d", len(pix), width*height*4)
	}
	stride := width * 4
	tiles := make([]SlicedTile, 0, grid.X*grid.Y)
	for ty := range grid.Y {
		for tx := range grid.X {
			var block PixelBlock
			for row := range TileSize {
				off := (ty*TileSize+row)*stride + tx*TileSize*4
				copy(block[row*TileSize*4:(row+1)*TileSize*4], pix[off:off+TileSize*4])
			}
			if block.IsEmpty() {
				continue
			}
			tiles = append(tiles, SlicedTile{Position: image.Pt(tx, ty), Pixels: block})
		}
	}
	return tiles, nil
}

// CanvasPixels converts img into a tightly packed NRGBA buffer the way a
// browser canvas reads it back: fully transparent pixels become 0,0,0,0.
func CanvasPixels(img image.Image) (pix []byte, width, height int) {
	b := img.Bounds()
	dst, ok := img.(*image.NRGBA)
	if !ok || dst.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		dst = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		dst = &image.NRGBA{Pix: append([]byte(nil), dst.Pix...), Stride: dst.Stride, Rect: dst.Rect}
	}
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i+3] == 0 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = 0, 0, 0
		}
	}
	return dst.Pix, b.Dx(), b.Dy()
}

// SliceImage is Slice over a decoded image.
func SliceImage(img image.Image) ([]SlicedTile, error) {
	pix, w, h := CanvasPixels(img)
	return Slice(pix, w, h)
}
