package visual

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/google/uuid"
)

const (
	placeholderWidth  = 1280
	placeholderHeight = 704
)

// placeholder draws an abstract accent-colored composition and stores it
// in scratch storage. Used when every image source has failed.
func (r *Resolver) placeholder(ctx context.Context, index int, accentColor string) (string, error) {
	accent := parseHex(accentColor, color.RGBA{R: 0x63, G: 0x66, B: 0xf1, A: 0xff})

	dc := gg.NewContext(placeholderWidth, placeholderHeight)

	dc.SetRGB255(15, 23, 42)
	dc.Clear()

	// Concentric translucent circles centered off-canvas, shifted per
	// slide index so consecutive placeholders differ.
	cx := float64(placeholderWidth) * (0.25 + 0.1*float64(index%6))
	cy := float64(placeholderHeight) * 0.75
	for ring := 5; ring >= 1; ring-- {
		alpha := 0.06 * float64(6-ring)
		dc.SetRGBA(float64(accent.R)/255, float64(accent.G)/255, float64(accent.B)/255, alpha)
		dc.DrawCircle(cx, cy, float64(ring)*110)
		dc.Fill()
	}

	dc.SetRGBA(float64(accent.R)/255, float64(accent.G)/255, float64(accent.B)/255, 0.85)
	dc.SetLineWidth(6)
	dc.DrawLine(0, float64(placeholderHeight)*0.9, float64(placeholderWidth), float64(placeholderHeight)*0.65)
	dc.Stroke()

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, dc.Image(), imaging.PNG); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}

	filename := fmt.Sprintf("placeholder_%d_%s.png", index, uuid.New().String()[:8])
	path, err := r.storage.Save(ctx, scratchSubdir, filename, buf)
	if err != nil {
		return "", fmt.Errorf("save placeholder: %w", err)
	}

	return path, nil
}

// parseHex converts a hex color like "6366f1" or "#6366F1" into an RGBA
// value, falling back when the string is malformed.
func parseHex(hex string, fallback color.RGBA) color.RGBA {
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
