package track

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
)

// Map places a bitmap in world space. Size is the world extent in pixels of
// the longer bitmap side.
type Map struct {
	Bitmap *Bitmap
	Size   float64
	Scale  float64
}

func NewMap(b *Bitmap, size float64) *Map {
	m := &Map{Bitmap: b, Size: size}
	if side := max(b.Width(), b.Height()); side > 0 {
		m.Scale = size / float64(side)
	}
	return m
}

// Load decodes a track image from a file path or an http(s) URL and wraps
// it into a Map.
func Load(ctx context.Context, path string, size float64) (*Map, error) {
	img, err := LoadImage(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewMap(NewBitmap(img), size), nil
}

func LoadImage(ctx context.Context, path string) (image.Image, error) {
	r, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("track: decode %s: %w", path, err)
	}
	return img, nil
}

func open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return os.Open(path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("track: fetch %s: %s", path, resp.Status)
	}
	return resp.Body, nil
}
