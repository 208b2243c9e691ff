// Package orientation derives the two upright hypotheses of a label photo.
//
// A photographed label can be lying on either side. Landscape photos are
// rotated a quarter turn in both directions; portrait photos are kept as
// they are and also turned upside down. The bottom half of each variant,
// where the label text sits on an upright sheet, becomes a candidate for
// extraction.
package orientation

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Orientation names one upright hypothesis.
type Orientation string

const (
	Clockwise        Orientation = "cw"
	CounterClockwise Orientation = "ccw"
	Original         Orientation = "original"
	Rotated          Orientation = "rotated"
)

// FullSizeDir is the subdirectory holding the full-size rotated variants.
const FullSizeDir = "fullsize"

const defaultJPEGQuality = 95

var (
	// ErrDecode is returned when the source image cannot be read.
	ErrDecode = errors.New("image decode failed")
	// ErrSave is returned when a variant cannot be written.
	ErrSave = errors.New("image save failed")
)

// Candidate is one oriented variant of a source image.
type Candidate struct {
	Orientation  Orientation
	FullSizePath string
	CroppedPath  string
}

// Generator writes oriented variants into a working directory.
type Generator struct {
	dir         string
	jpegQuality int
}

// Option customizes the generator.
type Option func(*Generator)

// WithJPEGQuality overrides the JPEG quality used for saved variants.
func WithJPEGQuality(q int) Option {
	return func(g *Generator) {
		if q > 0 && q <= 100 {
			g.jpegQuality = q
		}
	}
}

// NewGenerator returns a generator writing into dir and dir/fullsize.
func NewGenerator(dir string, opts ...Option) *Generator {
	g := &Generator{dir: dir, jpegQuality: defaultJPEGQuality}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate decodes the image at path, applying EXIF orientation, and
// returns its two candidates in hypothesis order.
func (g *Generator) Generate(path string) ([]Candidate, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	type variant struct {
		orientation Orientation
		img         image.Image
	}

	var variants []variant
	bounds := img.Bounds()
	if bounds.Dx() > bounds.Dy() {
		variants = []variant{
			{Clockwise, imaging.Rotate270(img)},
			{CounterClockwise, imaging.Rotate90(img)},
		}
	} else {
		variants = []variant{
			{Original, img},
			{Rotated, imaging.Rotate180(img)},
		}
	}

	if err := os.MkdirAll(filepath.Join(g.dir, FullSizeDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create fullsize directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ext := strings.ToLower(filepath.Ext(path))

	candidates := make([]Candidate, 0, len(variants))
	for _, v := range variants {
		name := fmt.Sprintf("%s_%s%s", base, v.orientation, ext)
		c := Candidate{
			Orientation:  v.orientation,
			FullSizePath: filepath.Join(g.dir, FullSizeDir, name),
			CroppedPath:  filepath.Join(g.dir, name),
		}
		if err := g.save(v.img, c.FullSizePath); err != nil {
			return nil, err
		}
		if err := g.save(BottomHalf(v.img), c.CroppedPath); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	slog.Debug("Generated orientation candidates", "path", path, "width", bounds.Dx(), "height", bounds.Dy(), "count", len(candidates))
	return candidates, nil
}

func (g *Generator) save(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(g.jpegQuality)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSave, path, err)
	}
	return nil
}

// BottomHalf crops img to its lower half. For odd heights the extra row
// belongs to the bottom half.
func BottomHalf(img image.Image) *image.NRGBA {
	b := img.Bounds()
	return imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y+b.Dy()/2, b.Max.X, b.Max.Y))
}
