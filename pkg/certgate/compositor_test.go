package certgate

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tdewolff/canvas"
)

// Build a compositor backed by whatever fonts the host has installed. Skips
// the test when none are found so the suite still runs on bare containers.
func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()

	var fonts []FontMetadata
	for _, dir := range []string{"/usr/share/fonts", "/usr/local/share/fonts", "/Library/Fonts", "/System/Library/Fonts"} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		found, err := ScanFontDir(dir)
		if err != nil {
			continue
		}
		fonts = append(fonts, found...)
		if len(fonts) > 0 {
			break
		}
	}

	if len(fonts) == 0 {
		t.Skip("no usable fonts found on this host")
	}

	metaPath := filepath.Join(t.TempDir(), "font_metadata.json")
	data, err := json.Marshal(fonts)
	if err != nil {
		t.Fatalf("failed to marshal font metadata: %v", err)
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		t.Fatalf("failed to write font metadata: %v", err)
	}

	compositor, err := NewCompositor(Config{
		FontMetadataPath: metaPath,
		VerifySecret:     "test-secret",
	})
	if err != nil {
		t.Fatalf("failed to create compositor: %v", err)
	}

	return compositor
}

func testBackground(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test background: %v", err)
	}
	return buf.Bytes()
}

func testFields(fontName string) []Field {
	maxWidth := 60.0
	return []Field{
		{
			Type:         FieldTypeRecipientName,
			XPercent:     50,
			YPercent:     40,
			Font:         Font{Name: fontName, Size: 24, Color: "#1A1A1A", Weight: FontWeightRegular},
			TextAlign:    TextAlignCenter,
			DisplayOrder: 0,
			IsRequired:   true,
		},
		{
			Type:            FieldTypeDate,
			XPercent:        50,
			YPercent:        60,
			Font:            Font{Name: fontName, Size: 14, Color: "#333333", Weight: FontWeightRegular},
			TextAlign:       TextAlignCenter,
			MaxWidthPercent: &maxWidth,
			DisplayOrder:    1,
		},
		{
			Type:         FieldTypeCertificateNumber,
			XPercent:     10,
			YPercent:     90,
			Font:         Font{Name: fontName, Size: 10, Color: "#555555", Weight: FontWeightRegular},
			TextAlign:    TextAlignLeft,
			DisplayOrder: 2,
		},
	}
}

func testValues() FieldValues {
	return FieldValues{
		RecipientName:     "Ahmed",
		CertificateNumber: "CERT-2025-000042",
		IssuedAt:          time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestRenderDeterministic(t *testing.T) {
	compositor := newTestCompositor(t)
	fontName := compositor.fonts.DefaultFontName()

	req := RenderRequest{
		Background: testBackground(t, 640, 480),
		Fields:     testFields(fontName),
		Values:     testValues(),
	}

	first, err := compositor.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("first render failed: %v", err)
	}

	second, err := compositor.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("identical requests produced different bytes")
	}
}

func TestRenderKeepsNativeResolution(t *testing.T) {
	compositor := newTestCompositor(t)
	fontName := compositor.fonts.DefaultFontName()

	req := RenderRequest{
		Background: testBackground(t, 512, 384),
		Fields:     testFields(fontName),
		Values:     testValues(),
	}

	out, err := compositor.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a valid png: %v", err)
	}

	if img.Bounds().Dx() != 512 || img.Bounds().Dy() != 384 {
		t.Errorf("output is %dx%d, want the background's native 512x384", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

// A custom field with no matching entry must be skipped without an error, and
// the result must match a render where the field never existed.
func TestRenderSkipsUnresolvedCustomField(t *testing.T) {
	compositor := newTestCompositor(t)
	fontName := compositor.fonts.DefaultFontName()

	background := testBackground(t, 400, 300)
	base := testFields(fontName)

	withDangling := append(append([]Field{}, base...), Field{
		Type:         FieldTypeCustom,
		CustomKey:    "venue",
		XPercent:     50,
		YPercent:     80,
		Font:         Font{Name: fontName, Size: 12, Color: "#000000"},
		DisplayOrder: 3,
	})

	got, err := compositor.Render(context.Background(), RenderRequest{
		Background: background,
		Fields:     withDangling,
		Values:     testValues(),
	})
	if err != nil {
		t.Fatalf("render with unresolved custom field failed: %v", err)
	}

	want, err := compositor.Render(context.Background(), RenderRequest{
		Background: background,
		Fields:     base,
		Values:     testValues(),
	})
	if err != nil {
		t.Fatalf("baseline render failed: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Error("unresolved custom field changed the output")
	}
}

func TestRenderInvalidBackground(t *testing.T) {
	compositor := newTestCompositor(t)

	_, err := compositor.Render(context.Background(), RenderRequest{
		Background: []byte("not an image"),
		Fields:     nil,
		Values:     testValues(),
	})
	if err == nil {
		t.Fatal("expected an error for an undecodable background")
	}
}

func TestRenderHonorsCancelledContext(t *testing.T) {
	compositor := newTestCompositor(t)
	fontName := compositor.fonts.DefaultFontName()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compositor.Render(ctx, RenderRequest{
		Background: testBackground(t, 400, 300),
		Fields:     testFields(fontName),
		Values:     testValues(),
	})
	if err == nil {
		t.Fatal("expected an error when the context is already cancelled")
	}
}

func TestRenderWithAddons(t *testing.T) {
	compositor := newTestCompositor(t)
	fontName := compositor.fonts.DefaultFontName()

	out, err := compositor.Render(context.Background(), RenderRequest{
		Background: testBackground(t, 640, 480),
		Fields:     testFields(fontName),
		Values:     testValues(),
		EmbedQR:    true,
		Signature: &SignaturePanel{
			Algorithm:   "Ed25519",
			SignatureID: "b7e1f0a2c4d6e8f0a2c4d6e8",
			Valid:       true,
		},
		Watermark: "PREVIEW",
	})
	if err != nil {
		t.Fatalf("render with add-ons failed: %v", err)
	}

	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("output is not a valid png: %v", err)
	}
}

func TestTruncateToWidth(t *testing.T) {
	compositor := newTestCompositor(t)

	face, err := compositor.fieldFace(Font{Name: compositor.fonts.DefaultFontName(), Size: 24})
	if err != nil {
		t.Fatalf("failed to load font face: %v", err)
	}

	measure := func(s string) float64 {
		return canvas.NewTextBox(face, s, 0, 0, canvas.Left, canvas.Top, 0.0, 0.0).Bounds().W()
	}

	long := "Mohammed Abdelrahman Al-Farouk, Distinguished Graduate"
	budget := measure(long) / 2

	truncated := truncateToWidth(face, long, budget)
	if truncated == long {
		t.Fatal("text twice as wide as the budget was not truncated")
	}
	if w := measure(truncated); w > budget {
		t.Errorf("truncated text is %.2fmm wide, budget is %.2fmm", w, budget)
	}
	if !strings.HasPrefix(long, truncated) {
		t.Errorf("runes must be dropped from the end only, got %q", truncated)
	}

	if again := truncateToWidth(face, long, budget); again != truncated {
		t.Errorf("same input truncated differently: %q vs %q", truncated, again)
	}

	if got := truncateToWidth(face, long, 0); got != long {
		t.Errorf("non-positive budget must leave the text untouched, got %q", got)
	}
}

func TestRenderTruncatesOverflowingField(t *testing.T) {
	compositor := newTestCompositor(t)
	fontName := compositor.fonts.DefaultFontName()

	maxWidth := 15.0
	fields := testFields(fontName)
	fields[0].MaxWidthPercent = &maxWidth

	values := testValues()
	values.RecipientName = "An Improbably Long Recipient Name That Cannot Fit The Field Budget"

	req := RenderRequest{
		Background: testBackground(t, 640, 480),
		Fields:     fields,
		Values:     values,
	}

	first, err := compositor.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("first render failed: %v", err)
	}
	second, err := compositor.Render(context.Background(), req)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("identical overflowing requests produced different bytes")
	}
}
