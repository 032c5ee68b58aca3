package visualizer

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
)

// Surface is a drawing target sized in CSS pixels and backed by device pixels
type Surface interface {
	// CSSSize is the laid out size in CSS pixels
	CSSSize() (width, height float64)
	DevicePixelRatio() float64
	// Resize sets the backing store size in device pixels
	Resize(width, height int)
	// SetTransform replaces the current transform with a uniform scale
	SetTransform(scale float64)
	Clear()
	FillRect(x, y, w, h float64, c color.Color)
}

// RasterSurface draws into an in-memory RGBA image
type RasterSurface struct {
	mu    sync.Mutex
	cssW  float64
	cssH  float64
	dpr   float64
	scale float64
	img   *image.RGBA
}

// NewRasterSurface creates a surface of the given CSS size and pixel ratio
func NewRasterSurface(cssW, cssH, dpr float64) *RasterSurface {
	if dpr <= 0 {
		dpr = 1
	}
	return &RasterSurface{cssW: cssW, cssH: cssH, dpr: dpr, scale: 1, img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

func (s *RasterSurface) CSSSize() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cssW, s.cssH
}

func (s *RasterSurface) DevicePixelRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dpr
}

// SetLayout changes the CSS size and pixel ratio, e.g. on window resize or zoom
func (s *RasterSurface) SetLayout(cssW, cssH, dpr float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cssW, s.cssH = cssW, cssH
	if dpr > 0 {
		s.dpr = dpr
	}
}

// Resize reallocates the image only when the size changes
func (s *RasterSurface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.img.Bounds(); b.Dx() == width && b.Dy() == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (s *RasterSurface) SetTransform(scale float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scale = scale
}

// Scale returns the current transform scale
func (s *RasterSurface) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *RasterSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// FillRect fills a rectangle given in CSS pixels
func (s *RasterSurface) FillRect(x, y, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := image.Rect(
		int(math.Round(x*s.scale)),
		int(math.Round(y*s.scale)),
		int(math.Round((x+w)*s.scale)),
		int(math.Round((y+h)*s.scale)),
	).Intersect(s.img.Bounds())
	draw.Draw(s.img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// Snapshot returns a copy of the current image
func (s *RasterSurface) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}
