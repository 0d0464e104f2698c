// Package renderer lays out slide records and their resolved images into
// a serialized deck: one 1280x720 PNG per slide plus a manifest, packed
// into a single zip archive. Rendering is deterministic for identical
// inputs and image bytes.
package renderer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/aliskhannn/deck-generator/internal/model"
)

const (
	slideWidth  = 1280
	slideHeight = 720

	titleFontSize  = 40
	bulletFontSize = 24

	imageMaxWidthRatio  = 0.55
	imageMaxHeightRatio = 0.85
	textWidthRatio      = 0.40
)

// Renderer draws slides onto fixed-size canvases. A TTF font path may be
// configured; otherwise a built-in bitmap face is used.
type Renderer struct {
	fontPath string
}

// New creates a Renderer. fontPath may be empty.
func New(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath}
}

// manifest is the machine-readable deck description stored alongside the
// slide images.
type manifest struct {
	ThemeColor string          `json:"theme_color"`
	Slides     []manifestSlide `json:"slides"`
}

type manifestSlide struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	File     string `json:"file"`
	HasImage bool   `json:"has_image"`
}

// Render produces the serialized deck bytes for the given slides. visuals
// is positionally aligned with slides; an empty entry means the slide is
// rendered without an image.
func (r *Renderer) Render(slides []model.SlideRecord, visuals []string, themeColor string) ([]byte, error) {
	if len(visuals) != len(slides) {
		return nil, fmt.Errorf("visuals length %d does not match slides length %d", len(visuals), len(slides))
	}

	bg := ParseHex(themeColor, color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff})

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	m := manifest{ThemeColor: themeColor, Slides: make([]manifestSlide, 0, len(slides))}

	for i, slide := range slides {
		png, err := r.renderSlide(slide, visuals[i], bg, i)
		if err != nil {
			return nil, fmt.Errorf("render slide %d: %w", i, err)
		}

		name := fmt.Sprintf("slide_%03d.png", i+1)
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(png); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", name, err)
		}

		m.Slides = append(m.Slides, manifestSlide{
			Index:    i,
			Title:    slide.Title,
			File:     name,
			HasImage: visuals[i] != "",
		})
	}

	mw, err := zw.Create("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("create manifest entry: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

// renderSlide draws one slide. Image and text alternate sides by index:
// even slides place the image on the left, odd on the right.
func (r *Renderer) renderSlide(slide model.SlideRecord, visualPath string, bg color.RGBA, index int) ([]byte, error) {
	dc := gg.NewContext(slideWidth, slideHeight)

	dc.SetColor(bg)
	dc.Clear()

	imageLeft := index%2 == 0

	textWidth := float64(slideWidth) * textWidthRatio
	var textX float64
	if imageLeft {
		textX = float64(slideWidth) - textWidth
	} else {
		textX = 20
	}

	if visualPath != "" {
		// A broken scratch file degrades to an image-less slide.
		if err := r.placeImage(dc, visualPath, imageLeft, textWidth); err != nil {
			zlog.Logger.Warn().Err(err).Str("path", visualPath).Msg("failed to place slide image")
		}
	}

	r.drawTextCard(dc, slide, textX, textWidth)

	out := new(bytes.Buffer)
	if err := imaging.Encode(out, dc.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode slide: %w", err)
	}

	return out.Bytes(), nil
}

// placeImage draws the resolved visual scaled to fit while preserving its
// aspect ratio, vertically centered in its half of the slide.
func (r *Renderer) placeImage(dc *gg.Context, path string, imageLeft bool, textWidth float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open visual: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return fmt.Errorf("decode visual: %w", err)
	}

	maxW := float64(slideWidth) * imageMaxWidthRatio
	maxH := float64(slideHeight) * imageMaxHeightRatio

	bounds := img.Bounds()
	aspect := float64(bounds.Dx()) / float64(bounds.Dy())

	var w, h float64
	if aspect > 1 {
		w = maxW
		h = w / aspect
		if h > maxH {
			h = maxH
			w = h * aspect
		}
	} else {
		h = maxH
		w = h * aspect
		if w > maxW {
			w = maxW
			h = w / aspect
		}
	}

	scaled := imaging.Resize(img, int(w), int(h), imaging.Lanczos)

	var x float64
	if imageLeft {
		x = 40
	} else {
		// Center the image in the space right of the text card.
		available := float64(slideWidth) - textWidth
		x = textWidth + (available-w)/2
	}
	y := (float64(slideHeight) - h) / 2

	dc.DrawImage(scaled, int(x), int(y))
	return nil
}

// drawTextCard draws the darkened card with the title and bullet points.
func (r *Renderer) drawTextCard(dc *gg.Context, slide model.SlideRecord, x, width float64) {
	cardTop := 40.0
	cardHeight := float64(slideHeight) * 0.8

	dc.SetRGBA(0, 0, 0, 0.8)
	dc.DrawRoundedRectangle(x, cardTop, width-20, cardHeight, 12)
	dc.Fill()

	accent := ParseHex(slide.AccentColor, color.RGBA{R: 0x63, G: 0x66, B: 0xf1, A: 0xff})
	titleColor := accent
	// Dim accents would sink into the dark card; fall back to yellow.
	if brightness(accent) <= 100 {
		titleColor = color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff}
	}

	padding := 24.0
	textX := x + padding
	textWidth := width - 20 - 2*padding

	r.setFace(dc, titleFontSize)
	dc.SetColor(titleColor)
	dc.DrawStringWrapped(slide.Title, textX, cardTop+padding, 0, 0, textWidth, 1.3, gg.AlignLeft)

	_, titleHeight := dc.MeasureMultilineString(wrapMeasure(dc, slide.Title, textWidth), 1.3)

	r.setFace(dc, bulletFontSize)
	dc.SetRGB(1, 1, 1)

	y := cardTop + padding + titleHeight + 30
	for _, point := range slide.BulletPoints {
		line := "• " + point
		dc.DrawStringWrapped(line, textX, y, 0, 0, textWidth, 1.4, gg.AlignLeft)
		_, h := dc.MeasureMultilineString(wrapMeasure(dc, line, textWidth), 1.4)
		y += h + 14
	}
}

// wrapMeasure wraps text the same way DrawStringWrapped will, so the
// measured height matches what gets drawn.
func wrapMeasure(dc *gg.Context, s string, width float64) string {
	wrapped := dc.WordWrap(s, width)
	out := ""
	for i, line := range wrapped {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// setFace selects the configured TTF at the given size, or the built-in
// bitmap face when no font is configured or loading fails.
func (r *Renderer) setFace(dc *gg.Context, size float64) {
	if r.fontPath != "" {
		if err := dc.LoadFontFace(r.fontPath, size); err == nil {
			return
		}
	}
	var face font.Face = basicfont.Face7x13
	dc.SetFontFace(face)
}

// brightness returns the perceived brightness of a color (0-255).
func brightness(c color.RGBA) float64 {
	return (float64(c.R)*299 + float64(c.G)*587 + float64(c.B)*114) / 1000
}

// ParseHex converts a hex color like "0F172A" or "#0F172A" into an RGBA
// value, falling back when the string is malformed.
func ParseHex(hex string, fallback color.RGBA) color.RGBA {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return fallback
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}

	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}
}
