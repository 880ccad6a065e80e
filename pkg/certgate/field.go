package certgate

import (
	"math"
	"sort"
	"time"
)

type FieldType string

const (
	FieldTypeRecipientName     FieldType = "recipient_name"
	FieldTypeDate              FieldType = "date"
	FieldTypeCertificateNumber FieldType = "certificate_number"
	FieldTypeCustom            FieldType = "custom"
)

func (ft FieldType) Valid() bool {
	switch ft {
	case FieldTypeRecipientName, FieldTypeDate, FieldTypeCertificateNumber, FieldTypeCustom:
		return true
	}
	return false
}

type TextAlign string

const (
	TextAlignLeft   TextAlign = "left"
	TextAlignCenter TextAlign = "center"
	TextAlignRight  TextAlign = "right"
)

// Field is a positioned text placeholder on a template. Coordinates are
// percentages of the background dimensions so the same field definition works
// for any background resolution.
type Field struct {
	Type            FieldType
	XPercent        float64
	YPercent        float64
	Font            Font
	TextAlign       TextAlign
	MaxWidthPercent *float64
	DisplayOrder    int
	IsRequired      bool
	// Lookup key into FieldValues.Custom, only used by FieldTypeCustom
	CustomKey string
}

// Anchor converts the percent coordinates to absolute pixels on a background
// of the given dimensions.
func (f Field) Anchor(width, height int) (int, int) {
	x := int(math.Round(f.XPercent / 100 * float64(width)))
	y := int(math.Round(f.YPercent / 100 * float64(height)))
	return x, y
}

// MaxWidthPx converts MaxWidthPercent to an absolute pixel budget.
// The second return is false when the field has no width limit.
func (f Field) MaxWidthPx(width int) (float64, bool) {
	if f.MaxWidthPercent == nil {
		return 0, false
	}
	return *f.MaxWidthPercent / 100 * float64(width), true
}

// SortFields orders fields by paint order: ascending display order, higher
// order painted later and therefore on top. The sort is stable so two fields
// sharing a display order keep their input order.
func SortFields(fields []Field) []Field {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return sorted
}

// FieldValues carries the runtime values a render resolves fields against.
type FieldValues struct {
	RecipientName     string
	CertificateNumber string
	IssuedAt          time.Time
	Custom            map[string]string
}

// ResolveValue returns the text for a field. A custom field with no matching
// entry resolves to ok=false and is skipped by the compositor, never an error.
func (f Field) ResolveValue(values FieldValues) (string, bool) {
	switch f.Type {
	case FieldTypeRecipientName:
		return values.RecipientName, values.RecipientName != ""
	case FieldTypeDate:
		return FormatIssueDate(values.IssuedAt), true
	case FieldTypeCertificateNumber:
		return values.CertificateNumber, values.CertificateNumber != ""
	case FieldTypeCustom:
		v, ok := values.Custom[f.CustomKey]
		return v, ok && v != ""
	}
	return "", false
}

// FormatIssueDate formats the issuance date the same way on every render.
// The original used the browser locale, which is not reproducible server side.
// The date is normalized to UTC so verification hashes computed later from a
// database read match the ones computed at render time regardless of the
// location attached to the loaded timestamp.
func FormatIssueDate(t time.Time) string {
	return t.UTC().Format("January 2, 2006")
}
