package renderer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/deck-generator/internal/model"
)

func sampleSlides() []model.SlideRecord {
	return []model.SlideRecord{
		{
			Title:        "Wind Power",
			BulletPoints: []string{"Turbines convert kinetic energy", "Offshore farms scale well"},
			VisualQuery:  "wind turbine in a field",
			AccentColor:  "FDE047",
			Layout:       "center",
		},
		{
			Title:        "Solar Power",
			BulletPoints: []string{"Photovoltaic cells", "Costs keep falling"},
			VisualQuery:  "solar panel array",
			AccentColor:  "22D3EE",
			Layout:       "center",
		},
	}
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = content
	}
	return entries
}

func TestRender_WithoutImages(t *testing.T) {
	r := New("")

	data, err := r.Render(sampleSlides(), []string{"", ""}, "0F172A")
	require.NoError(t, err)

	entries := readArchive(t, data)
	require.Contains(t, entries, "slide_001.png")
	require.Contains(t, entries, "slide_002.png")
	require.Contains(t, entries, "manifest.json")

	// Slide entries decode as images of the expected size.
	img, err := imaging.Decode(bytes.NewReader(entries["slide_001.png"]))
	require.NoError(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())
	assert.Equal(t, 720, img.Bounds().Dy())

	var m struct {
		ThemeColor string `json:"theme_color"`
		Slides     []struct {
			Index    int    `json:"index"`
			Title    string `json:"title"`
			File     string `json:"file"`
			HasImage bool   `json:"has_image"`
		} `json:"slides"`
	}
	require.NoError(t, json.Unmarshal(entries["manifest.json"], &m))

	assert.Equal(t, "0F172A", m.ThemeColor)
	require.Len(t, m.Slides, 2)
	assert.Equal(t, "Wind Power", m.Slides[0].Title)
	assert.Equal(t, "Solar Power", m.Slides[1].Title)
	assert.False(t, m.Slides[0].HasImage)
}

func TestRender_WithImage(t *testing.T) {
	// Materialize a small test visual the way the resolver would.
	dir := t.TempDir()
	visualPath := filepath.Join(dir, "visual.png")
	dc := gg.NewContext(400, 300)
	dc.SetRGB(0.2, 0.6, 0.4)
	dc.Clear()
	f, err := os.Create(visualPath)
	require.NoError(t, err)
	require.NoError(t, imaging.Encode(f, dc.Image(), imaging.PNG))
	require.NoError(t, f.Close())

	r := New("")
	data, err := r.Render(sampleSlides(), []string{visualPath, ""}, "0F172A")
	require.NoError(t, err)

	entries := readArchive(t, data)

	var m struct {
		Slides []struct {
			HasImage bool `json:"has_image"`
		} `json:"slides"`
	}
	require.NoError(t, json.Unmarshal(entries["manifest.json"], &m))
	assert.True(t, m.Slides[0].HasImage)
	assert.False(t, m.Slides[1].HasImage)
}

func TestRender_VisualCountMismatch(t *testing.T) {
	r := New("")

	_, err := r.Render(sampleSlides(), []string{""}, "0F172A")
	assert.Error(t, err)
}

func TestRender_Deterministic(t *testing.T) {
	r := New("")

	a, err := r.Render(sampleSlides(), []string{"", ""}, "0F172A")
	require.NoError(t, err)
	b, err := r.Render(sampleSlides(), []string{"", ""}, "0F172A")
	require.NoError(t, err)

	// Compare decompressed entries; zip metadata may carry timestamps.
	assert.Equal(t, readArchive(t, a), readArchive(t, b))
}

func TestParseHex(t *testing.T) {
	fallback := color.RGBA{R: 1, G: 2, B: 3, A: 0xff}

	tests := []struct {
		name string
		in   string
		want color.RGBA
	}{
		{"plain", "0F172A", color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}},
		{"with hash", "#FDE047", color.RGBA{R: 0xfd, G: 0xe0, B: 0x47, A: 0xff}},
		{"too short", "FFF", fallback},
		{"garbage", "not-a-color", fallback},
		{"empty", "", fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHex(tt.in, fallback))
		})
	}
}
