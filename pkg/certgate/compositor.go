package certgate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/jpeg"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

/*
 * Attention: tdewolff/canvas uses mm as the unit of measurement, all input from
 * this package take px as the unit and will convert to mm when needed.
 */

const DPI = 72

const pxPerMM = DPI / 25.4

// Converts pixels to millimeters
func pxToMM(px float64) float64 {
	return (px * 25.4) / DPI
}

// SignaturePanel describes the digital-signature add-on composited into a
// fixed corner of the certificate.
type SignaturePanel struct {
	Algorithm   string
	SignatureID string
	Valid       bool
}

type RenderRequest struct {
	// Background raster (png or jpeg); the output canvas keeps its native
	// dimensions so percent coordinates stay accurate.
	Background []byte
	Fields     []Field
	Values     FieldValues

	EmbedQR   bool
	Signature *SignaturePanel
	// Diagonal translucent watermark text, empty to disable. Only set on
	// non-production renders.
	Watermark string
}

// Compositor renders certificates. It is stateless apart from the font cache
// and safe for concurrent use.
type Compositor struct {
	cfg   Config
	fonts *FontLoader
}

func NewCompositor(cfg Config) (*Compositor, error) {
	fonts, err := NewFontLoader(cfg)
	if err != nil {
		return nil, err
	}

	return &Compositor{cfg: cfg, fonts: fonts}, nil
}

// Render composites the certificate and encodes it to PNG bytes. Identical
// requests produce byte-identical output.
func (c *Compositor) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	bg, _, err := image.Decode(bytes.NewReader(req.Background))
	if err != nil {
		return nil, fmt.Errorf("failed to decode background image: %w", err)
	}

	widthPx := bg.Bounds().Dx()
	heightPx := bg.Bounds().Dy()

	cnv := canvas.New(pxToMM(float64(widthPx)), pxToMM(float64(heightPx)))
	cc := canvas.NewContext(cnv)
	// Change coordination from bottom-left to top-left
	cc.SetCoordSystem(canvas.CartesianIV)

	cc.DrawImage(0, 0, bg, canvas.DPMM(pxPerMM))

	for _, field := range SortFields(req.Fields) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value, ok := field.ResolveValue(req.Values)
		if !ok {
			continue
		}

		if err := c.drawField(cc, field, value, widthPx, heightPx); err != nil {
			return nil, err
		}
	}

	if req.EmbedQR {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		payload := NewQRPayload(req.Values.CertificateNumber, req.Values.RecipientName, req.Values.IssuedAt, c.cfg.VerifySecret)
		if err := c.drawQRCode(cc, payload, widthPx, heightPx); err != nil {
			return nil, err
		}
	}

	if req.Signature != nil {
		if err := c.drawSignaturePanel(cc, *req.Signature, widthPx, heightPx); err != nil {
			return nil, err
		}
	}

	if req.Watermark != "" {
		if err := c.drawWatermark(cc, req.Watermark, widthPx, heightPx); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := rasterizer.Draw(cnv, canvas.DPMM(pxPerMM), canvas.DefaultColorSpace)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode certificate: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *Compositor) fieldFace(font Font) (*canvas.FontFace, error) {
	family, err := c.fonts.LoadFontOrDefault(font.Name, font.GetFontStyle())
	if err != nil {
		return nil, err
	}

	fontColor := font.Color
	if fontColor == "" {
		fontColor = "#000000"
	}

	return family.Face(font.Size, canvas.Hex(fontColor), font.GetFontStyle(), canvas.FontNormal), nil
}

func (c *Compositor) drawField(cc *canvas.Context, field Field, value string, widthPx, heightPx int) error {
	face, err := c.fieldFace(field.Font)
	if err != nil {
		return err
	}

	if maxWidthPx, ok := field.MaxWidthPx(widthPx); ok {
		value = truncateToWidth(face, value, pxToMM(maxWidthPx))
	}
	if value == "" {
		return nil
	}

	textBox := canvas.NewTextBox(face, value, 0, 0, canvas.Left, canvas.Top, 0.0, 0.0)
	textWidthMM, textHeightMM := textBox.Bounds().W(), textBox.Bounds().H()

	anchorXPx, anchorYPx := field.Anchor(widthPx, heightPx)
	x := pxToMM(float64(anchorXPx))
	// Vertical anchor is mid-line
	y := pxToMM(float64(anchorYPx)) - textHeightMM/2

	switch field.TextAlign {
	case TextAlignLeft:
	case TextAlignRight:
		x -= textWidthMM
	default:
		x -= textWidthMM / 2
	}

	cc.DrawText(x, y, textBox)
	return nil
}

// truncateToWidth drops runes from the end until the text fits the budget.
// No wrapping, no ellipsis, same input always truncates the same way.
func truncateToWidth(face *canvas.FontFace, text string, maxWidthMM float64) string {
	if maxWidthMM <= 0 {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 {
		textBox := canvas.NewTextBox(face, string(runes), 0, 0, canvas.Left, canvas.Top, 0.0, 0.0)
		if textBox.Bounds().W() <= maxWidthMM {
			break
		}
		runes = runes[:len(runes)-1]
	}

	return string(runes)
}

// QR symbol in the bottom-right corner over a white backing plate so it stays
// scannable over any artwork.
func (c *Compositor) drawQRCode(cc *canvas.Context, payload QRPayload, widthPx, heightPx int) error {
	qrSizePx := int(math.Round(0.10 * float64(min(widthPx, heightPx))))
	if qrSizePx < 64 {
		qrSizePx = 64
	}

	qrImg, err := GenerateQRCodeImage(payload, qrSizePx)
	if err != nil {
		return err
	}

	marginPx := float64(qrSizePx) / 8
	paddingPx := float64(qrSizePx) / 10

	plateSizePx := float64(qrSizePx) + 2*paddingPx
	plateX := float64(widthPx) - plateSizePx - marginPx
	plateY := float64(heightPx) - plateSizePx - marginPx

	cc.SetFillColor(color.White)
	cc.DrawPath(pxToMM(plateX), pxToMM(plateY), canvas.Rectangle(pxToMM(plateSizePx), pxToMM(plateSizePx)))

	cc.DrawImage(pxToMM(plateX+paddingPx), pxToMM(plateY+paddingPx), qrImg, canvas.DPMM(pxPerMM))
	return nil
}

const signatureIDDisplayLength = 16

func (c *Compositor) drawSignaturePanel(cc *canvas.Context, panel SignaturePanel, widthPx, heightPx int) error {
	family, err := c.fonts.LoadFont(c.fonts.DefaultFontName(), canvas.FontRegular)
	if err != nil {
		return err
	}

	panelWidthPx := 0.22 * float64(widthPx)
	panelHeightPx := 0.10 * float64(heightPx)
	marginPx := 0.015 * float64(min(widthPx, heightPx))
	panelX := marginPx
	panelY := float64(heightPx) - panelHeightPx - marginPx

	cc.SetFillColor(color.NRGBA{R: 245, G: 245, B: 245, A: 230})
	cc.DrawPath(pxToMM(panelX), pxToMM(panelY), canvas.Rectangle(pxToMM(panelWidthPx), pxToMM(panelHeightPx)))

	signatureID := panel.SignatureID
	if len(signatureID) > signatureIDDisplayLength {
		signatureID = signatureID[:signatureIDDisplayLength]
	}

	validity := "Signature valid"
	validityColor := color.NRGBA{R: 46, G: 125, B: 50, A: 255}
	if !panel.Valid {
		validity = "Signature invalid"
		validityColor = color.NRGBA{R: 198, G: 40, B: 40, A: 255}
	}

	fontSize := pxToMM(panelHeightPx) * 0.6
	textColor := color.NRGBA{R: 66, G: 66, B: 66, A: 255}

	lines := []struct {
		text  string
		color color.Color
	}{
		{fmt.Sprintf("Signed: %s", panel.Algorithm), textColor},
		{fmt.Sprintf("ID: %s", signatureID), textColor},
		{validity, validityColor},
	}

	padding := pxToMM(panelWidthPx) * 0.05
	lineHeight := pxToMM(panelHeightPx) / float64(len(lines)+1)
	for i, line := range lines {
		face := family.Face(fontSize, line.color, canvas.FontRegular, canvas.FontNormal)
		textBox := canvas.NewTextBox(face, line.text, 0, 0, canvas.Left, canvas.Top, 0.0, 0.0)
		cc.DrawText(pxToMM(panelX)+padding, pxToMM(panelY)+lineHeight*float64(i)+lineHeight/2, textBox)
	}

	return nil
}

func (c *Compositor) drawWatermark(cc *canvas.Context, text string, widthPx, heightPx int) error {
	family, err := c.fonts.LoadFont(c.fonts.DefaultFontName(), canvas.FontRegular)
	if err != nil {
		return err
	}

	widthMM := pxToMM(float64(widthPx))
	heightMM := pxToMM(float64(heightPx))

	fontSize := math.Min(widthMM, heightMM) * 0.5
	face := family.Face(fontSize, color.NRGBA{R: 128, G: 128, B: 128, A: 70}, canvas.FontRegular, canvas.FontNormal)

	textBox := canvas.NewTextBox(face, text, 0, 0, canvas.Left, canvas.Top, 0.0, 0.0)

	cc.ComposeView(canvas.Identity.Translate(widthMM/2, heightMM/2).Rotate(-30))
	cc.DrawText(-textBox.Bounds().W()/2, -textBox.Bounds().H()/2, textBox)
	cc.ResetView()

	return nil
}
