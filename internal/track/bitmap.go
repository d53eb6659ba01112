// Package track turns a track image into a black/white occupancy bitmap the
// sensor model can sample.
package track

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrInvalidBitmapState indicates a clone of a bitmap whose cache was
	// never populated.
	ErrInvalidBitmapState = errors.New("track: bitmap is not cached")

	// ErrOutOfBounds indicates a pixel read outside the bitmap.
	ErrOutOfBounds = errors.New("track: pixel out of bounds")

	// ErrNoSource indicates a bitmap without a source image and without a cache.
	ErrNoSource = errors.New("track: bitmap has no source image")
)

// brightness above which a pixel counts as white (drivable), summed over RGB.
const threshold = 384

// Bitmap reads pixels from a source image until PopulateCache freezes them
// into a flat slice. Only cached bitmaps can be cloned.
type Bitmap struct {
	src    image.Image
	width  int
	height int
	cache  []bool
	cached bool
}

func NewBitmap(img image.Image) *Bitmap {
	b := &Bitmap{src: img}
	if img != nil {
		r := img.Bounds()
		b.width, b.height = r.Dx(), r.Dy()
	}
	return b
}

func (b *Bitmap) Width() int   { return b.width }
func (b *Bitmap) Height() int  { return b.height }
func (b *Bitmap) Cached() bool { return b.cached }

// PopulateCache snapshots every pixel. Later changes to the source image are
// not visible through the bitmap. Calling it again is a no-op.
func (b *Bitmap) PopulateCache() error {
	if b.cached {
		return nil
	}
	if b.src == nil {
		return ErrNoSource
	}

	cache := make([]bool, b.width*b.height)
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			cache[y*b.width+x] = b.sample(x, y)
		}
	}
	b.cache = cache
	b.cached = true
	return nil
}

// Clone returns an independent copy of a cached bitmap.
func (b *Bitmap) Clone() (*Bitmap, error) {
	if !b.cached {
		return nil, ErrInvalidBitmapState
	}
	cache := make([]bool, len(b.cache))
	copy(cache, b.cache)
	return &Bitmap{
		width:  b.width,
		height: b.height,
		cache:  cache,
		cached: true,
	}, nil
}

// Pixel reports whether (x, y) is white. y is a row index growing downward.
func (b *Bitmap) Pixel(x, y int) (bool, error) {
	if !b.Contains(x, y) {
		return false, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrOutOfBounds, x, y, b.width, b.height)
	}
	if b.cached {
		return b.cache[y*b.width+x], nil
	}
	if b.src == nil {
		return false, ErrNoSource
	}
	return b.sample(x, y), nil
}

func (b *Bitmap) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

func (b *Bitmap) sample(x, y int) bool {
	origin := b.src.Bounds().Min
	return IsWhite(b.src.At(origin.X+x, origin.Y+y))
}

// IsWhite applies the brightness threshold. Transparent areas count as
// white, the table under the track.
func IsWhite(c color.Color) bool {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	sum := int(n.R) + int(n.G) + int(n.B)
	transparent := 3 * (255 - int(n.A))
	return sum+transparent > threshold
}
