package main

import (
	"image/color"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/aquilax/go-perlin"
	"github.com/hajimehoshi/ebiten/v2"
)

// Theme is one colour scheme, cycled with the T key
type Theme struct {
	Name       string
	Background color.RGBA
	NoteFill   color.RGBA
	Marker     color.RGBA
	ShowMarker bool
	Texture    float64 // Strength of the noise texture on the background
}

var themes = []Theme{
	{
		Name:       "light",
		Background: color.RGBA{250, 248, 242, 255},
		NoteFill:   color.RGBA{0, 0, 0, 255},
		Marker:     color.RGBA{0, 0, 0, 255},
		ShowMarker: true,
		Texture:    0.05,
	},
	{
		Name:       "dark",
		Background: color.RGBA{0, 0, 0, 255},
		NoteFill:   color.RGBA{255, 255, 255, 255},
		Marker:     color.RGBA{255, 255, 255, 255},
		ShowMarker: true,
		Texture:    0.08,
	},
	{
		// Notes vanish into the background until they flash
		Name:       "hidden",
		Background: color.RGBA{0, 0, 0, 255},
		NoteFill:   color.RGBA{0, 0, 0, 255},
		ShowMarker: false,
	},
}

func themeIndex(name string) int {
	for i, t := range themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

var selfFill = color.RGBA{0, 128, 0, 255}

// palette is the fixed set of flash colours
var palette = []color.RGBA{
	{220, 20, 60, 255},  // crimson
	{255, 140, 0, 255},  // dark orange
	{255, 215, 0, 255},  // gold
	{50, 205, 50, 255},  // lime green
	{0, 191, 255, 255},  // deep sky blue
	{65, 105, 225, 255}, // royal blue
	{138, 43, 226, 255}, // blue violet
	{255, 20, 147, 255}, // deep pink
	{64, 224, 208, 255}, // turquoise
	{255, 99, 71, 255},  // tomato
}

const flashHalf = 800 * time.Millisecond

type flash struct {
	color color.RGBA
	start time.Duration
}

// flashBoard records flash triggers and blends node colours while they run.
// Triggers arrive from Session.Sweep, reads come from Draw.
type flashBoard struct {
	mu      sync.Mutex
	rng     *rand.Rand
	now     time.Duration
	flashes map[string]flash
}

func newFlashBoard(rng *rand.Rand) *flashBoard {
	return &flashBoard{rng: rng, flashes: make(map[string]flash)}
}

// Flash starts the animation toward a random palette colour
func (f *flashBoard) Flash(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashes[id] = flash{color: palette[f.rng.Intn(len(palette))], start: f.now}
}

// advance moves the animation clock and drops finished flashes
func (f *flashBoard) advance(dt time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now += dt
	for id, fl := range f.flashes {
		if f.now-fl.start >= 2*flashHalf {
			delete(f.flashes, id)
		}
	}
}

// tint blends base toward the flash colour of id: up for flashHalf, then back
func (f *flashBoard) tint(id string, base color.RGBA) color.RGBA {
	f.mu.Lock()
	fl, ok := f.flashes[id]
	now := f.now
	f.mu.Unlock()
	if !ok {
		return base
	}

	t := float64(now-fl.start) / float64(flashHalf)
	if t > 1 {
		t = 2 - t
	}
	t = math.Max(0, math.Min(1, t))
	return lerpRGBA(base, fl.color, t)
}

func lerpRGBA(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}

// backgroundImage paints the theme background with a faint perlin texture
func backgroundImage(t Theme, w, h int, seed int64) *ebiten.Image {
	img := ebiten.NewImage(w, h)
	if t.Texture == 0 {
		img.Fill(t.Background)
		return img
	}

	noise := perlin.NewPerlin(2, 2, 3, seed)
	hue, sat, val := rgbToHSV(t.Background)
	pix := make([]byte, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := noise.Noise2D(float64(x)/120, float64(y)/120)
			v := math.Max(0, math.Min(1, val+n*t.Texture))
			r, g, b := hsvToRGB(hue, sat, v)
			i := 4 * (y*w + x)
			pix[i] = uint8(r * 255)
			pix[i+1] = uint8(g * 255)
			pix[i+2] = uint8(b * 255)
			pix[i+3] = 255
		}
	}
	img.WritePixels(pix)
	return img
}

// hsvToRGB helper
func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	h = math.Mod(h, 360)
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

func rgbToHSV(c color.RGBA) (float64, float64, float64) {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	d := hi - lo

	var h float64
	switch {
	case d == 0:
		h = 0
	case hi == r:
		h = 60 * math.Mod((g-b)/d, 6)
	case hi == g:
		h = 60 * ((b-r)/d + 2)
	default:
		h = 60 * ((r-g)/d + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if hi > 0 {
		s = d / hi
	}
	return h, s, hi
}
