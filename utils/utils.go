package utils

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/dominantcolor"
	"github.com/klauspost/compress/zip"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var imageExts = []string{".png", ".bmp", ".tif", ".tiff", ".jpg", ".jpeg"}

// ============ FILES ============

func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// BaseName strips the directory and the last extension from path.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IsImageFile reports whether path has a decodable image extension.
func IsImageFile(path string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(path)))
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}

// ArchiveName is the file name of a batch archive created at t. The date is
// the UTC day.
func ArchiveName(t time.Time) string {
	return "maps_export_" + t.UTC().Format("2006-01-02") + ".zip"
}

type ZipEntry struct {
	Name string
	Data []byte
}

// WriteZip writes entries as deflated files into a new archive at w.
func WriteZip(w io.Writer, entries []ZipEntry, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return fmt.Errorf("zip %s: %w", e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			zw.Close()
			return fmt.Errorf("zip %s: %w", e.Name, err)
		}
	}
	return zw.Close()
}

// ============ COLORS ============

// DominantColor returns the most prominent color of img. Images too sparse
// for clustering, such as a few opaque pixels on a clear tile, fall back to
// MeanColor.
func DominantColor(img image.Image) colorful.Color {
	if c, ok := colorful.MakeColor(dominantcolor.Find(img)); ok {
		return c.Clamped()
	}
	c, _ := MeanColor(img)
	return c
}

// MeanColor averages the visible pixels of img. ok is false when every
// pixel is fully transparent.
func MeanColor(img image.Image) (c colorful.Color, ok bool) {
	b := img.Bounds()
	var r, g, bl float64
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if px.A == 0 {
				continue
			}
			r += float64(px.R) / 255.0
			g += float64(px.G) / 255.0
			bl += float64(px.B) / 255.0
			n++
		}
	}
	if n == 0 {
		return colorful.Color{}, false
	}
	return colorful.Color{R: r / float64(n), G: g / float64(n), B: bl / float64(n)}, true
}

// SortPaletteByBrightness orders colors from darkest to brightest.
func SortPaletteByBrightness(palette []colorful.Color) {
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		ri, gi, bi := a.LinearRgb()
		rj, gj, bj := b.LinearRgb()
		yi := 0.2126*ri + 0.7152*gi + 0.0722*bi
		yj := 0.2126*rj + 0.7152*gj + 0.0722*bj
		if yi < yj {
			return -1
		}
		if yi > yj {
			return 1
		}
		return 0
	})
}

// GroupColors clusters colors in Lab space into at most k groups. labels[i]
// is the group of colors[i]; centers are the group colors. Every returned
// group has at least one member.
func GroupColors(colors []colorful.Color, k int) (labels []int, centers []colorful.Color, err error) {
	if len(colors) == 0 || k <= 0 {
		return nil, nil, nil
	}
	k = min(k, len(colors))

	dataset := make(clusters.Observations, 0, len(colors))
	for _, c := range colors {
		l, a, b := c.Lab()
		dataset = append(dataset, clusters.Coordinates{l, a, b})
	}
	if k == 1 {
		labels = make([]int, len(colors))
		l, a, b := mean(dataset)
		return labels, []colorful.Color{colorful.Lab(l, a, b).Clamped()}, nil
	}

	cc, err := kmeans.New().Partition(dataset, k)
	if err != nil {
		return nil, nil, err
	}
	// Clusters nobody is nearest to are dropped and the rest renumbered in
	// partition order.
	labels = make([]int, len(dataset))
	used := make([]bool, len(cc))
	for i, o := range dataset {
		labels[i] = cc.Nearest(o)
		used[labels[i]] = true
	}
	index := make([]int, len(cc))
	for i, c := range cc {
		if !used[i] {
			continue
		}
		index[i] = len(centers)
		centers = append(centers, colorful.Lab(c.Center[0], c.Center[1], c.Center[2]).Clamped())
	}
	for i, l := range labels {
		labels[i] = index[l]
	}
	return labels, centers, nil
}

func mean(obs clusters.Observations) (l, a, b float64) {
	for _, o := range obs {
		c := o.Coordinates()
		l += c[0]
		a += c[1]
		b += c[2]
	}
	n := float64(len(obs))
	return l / n, a / n, b / n
}

// SavePalette writes one tileSize square swatch per color, left to right.
func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	w := tileSize * len(palette)
	h := tileSize
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for i, c := range palette {
		r := uint8(max(0, min(255, c.R*255)))
		g := uint8(max(0, min(255, c.G*255)))
		b := uint8(max(0, min(255, c.B*255)))
		x0 := i * tileSize
		x1 := x0 + tileSize
		for y := range h {
			for x := x0; x < x1; x++ {
				img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}

	return SaveImage(img, filename)
}
