package certgate

import (
	"testing"
	"time"
)

func TestFieldAnchor(t *testing.T) {
	tests := []struct {
		name     string
		field    Field
		width    int
		height   int
		wantX    int
		wantY    int
	}{
		{"Center of 1000x500", Field{XPercent: 50, YPercent: 50}, 1000, 500, 500, 250},
		{"Origin", Field{XPercent: 0, YPercent: 0}, 1000, 500, 0, 0},
		{"Bottom right edge", Field{XPercent: 100, YPercent: 100}, 1000, 500, 1000, 500},
		{"Rounds to nearest pixel", Field{XPercent: 33.33, YPercent: 66.66}, 1000, 1000, 333, 667},
		{"Quarter point", Field{XPercent: 25, YPercent: 75}, 801, 601, 200, 451},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.field.Anchor(tt.width, tt.height)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("Anchor() = (%d, %d), want (%d, %d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

// Swapping the background for one of a different resolution must keep the
// relative position of every anchor.
func TestFieldAnchorScalesLinearly(t *testing.T) {
	field := Field{XPercent: 37.5, YPercent: 62.5}

	resolutions := []struct{ w, h int }{
		{800, 600},
		{1600, 1200},
		{3200, 2400},
		{1920, 1080},
	}

	for _, res := range resolutions {
		x, y := field.Anchor(res.w, res.h)

		relX := float64(x) / float64(res.w)
		relY := float64(y) / float64(res.h)

		if relX < 0.374 || relX > 0.376 {
			t.Errorf("relative x at %dx%d = %f, want ~0.375", res.w, res.h, relX)
		}
		if relY < 0.624 || relY > 0.626 {
			t.Errorf("relative y at %dx%d = %f, want ~0.625", res.w, res.h, relY)
		}
	}
}

func TestFieldMaxWidthPx(t *testing.T) {
	if _, ok := (Field{}).MaxWidthPx(1000); ok {
		t.Error("expected no width limit when MaxWidthPercent is nil")
	}

	maxWidth := 40.0
	field := Field{MaxWidthPercent: &maxWidth}
	got, ok := field.MaxWidthPx(1000)
	if !ok || got != 400 {
		t.Errorf("MaxWidthPx() = (%f, %v), want (400, true)", got, ok)
	}
}

func TestSortFields(t *testing.T) {
	fields := []Field{
		{Type: FieldTypeCustom, CustomKey: "b", DisplayOrder: 2},
		{Type: FieldTypeRecipientName, DisplayOrder: 0},
		{Type: FieldTypeCustom, CustomKey: "a", DisplayOrder: 2},
		{Type: FieldTypeDate, DisplayOrder: 1},
	}

	sorted := SortFields(fields)

	wantOrder := []int{0, 1, 2, 2}
	for i, f := range sorted {
		if f.DisplayOrder != wantOrder[i] {
			t.Fatalf("position %d has display order %d, want %d", i, f.DisplayOrder, wantOrder[i])
		}
	}

	// Stable: equal display orders keep their input order
	if sorted[2].CustomKey != "b" || sorted[3].CustomKey != "a" {
		t.Errorf("sort is not stable for equal display orders: got %q then %q", sorted[2].CustomKey, sorted[3].CustomKey)
	}

	// Input slice untouched
	if fields[0].CustomKey != "b" {
		t.Error("SortFields mutated its input")
	}
}

func TestFieldResolveValue(t *testing.T) {
	issuedAt := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	values := FieldValues{
		RecipientName:     "Ahmed",
		CertificateNumber: "CERT-2025-000042",
		IssuedAt:          issuedAt,
		Custom:            map[string]string{"instructor": "Dr. Sara"},
	}

	tests := []struct {
		name      string
		field     Field
		wantValue string
		wantOk    bool
	}{
		{"Recipient name", Field{Type: FieldTypeRecipientName}, "Ahmed", true},
		{"Date", Field{Type: FieldTypeDate}, "March 14, 2025", true},
		{"Certificate number", Field{Type: FieldTypeCertificateNumber}, "CERT-2025-000042", true},
		{"Custom present", Field{Type: FieldTypeCustom, CustomKey: "instructor"}, "Dr. Sara", true},
		{"Custom missing is skipped", Field{Type: FieldTypeCustom, CustomKey: "venue"}, "", false},
		{"Unknown type is skipped", Field{Type: FieldType("bogus")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := tt.field.ResolveValue(values)
			if value != tt.wantValue || ok != tt.wantOk {
				t.Errorf("ResolveValue() = (%q, %v), want (%q, %v)", value, ok, tt.wantValue, tt.wantOk)
			}
		})
	}
}

func TestFieldTypeValid(t *testing.T) {
	for _, ft := range []FieldType{FieldTypeRecipientName, FieldTypeDate, FieldTypeCertificateNumber, FieldTypeCustom} {
		if !ft.Valid() {
			t.Errorf("expected %q to be valid", ft)
		}
	}

	if FieldType("signature").Valid() {
		t.Error("expected unknown field type to be invalid")
	}
}
