package ingest

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

func TestPositiveInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want *int64
	}{
		{"negative", float64(-1), nil},
		{"zero", float64(0), nil},
		{"garbage string", "abc", nil},
		{"numeric string", "4", ptrInt(4)},
		{"fractional floors", 3.7, ptrInt(3)},
		{"whole", float64(3), ptrInt(3)},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
		{"nil", nil, nil},
		{"bool", true, nil},
		{"json number", json.Number("1500"), ptrInt(1500)},
		{"fraction below one", 0.4, nil},
	}

	for _, tt := range tests {
		got := PositiveInt(tt.in)
		if tt.want == nil {
			if got != nil {
				t.Errorf("%s: PositiveInt(%v) = %d; want nil", tt.name, tt.in, *got)
			}
			continue
		}
		if got == nil {
			t.Errorf("%s: PositiveInt(%v) = nil; want %d", tt.name, tt.in, *tt.want)
			continue
		}
		if *got != *tt.want {
			t.Errorf("%s: PositiveInt(%v) = %d; want %d", tt.name, tt.in, *got, *tt.want)
		}
	}
}

func TestPositiveFloat(t *testing.T) {
	if got := PositiveFloat(float64(450000)); got == nil || *got != 450000 {
		t.Errorf("PositiveFloat(450000) = %v; want 450000", got)
	}
	if got := PositiveFloat("450000.50"); got == nil || *got != 450000.50 {
		t.Errorf("PositiveFloat(\"450000.50\") = %v; want 450000.50", got)
	}
	if got := PositiveFloat(float64(-5)); got != nil {
		t.Errorf("PositiveFloat(-5) = %v; want nil", *got)
	}
	if got := PositiveFloat("free"); got != nil {
		t.Errorf("PositiveFloat(\"free\") = %v; want nil", *got)
	}
}

func TestValidateListingDataCollectsAllProblems(t *testing.T) {
	street := "1 Main St"
	badBeds := int64(25)
	badPrice := float64(200_000_000)

	row := &database.Listing{
		Zpid:             "123",
		AddressStreet:    &street,
		Beds:             &badBeds,
		UnformattedPrice: &badPrice,
	}

	ok, problems := ValidateListingData(row)
	if ok {
		t.Fatal("expected validation to fail")
	}

	// Missing city, missing state, beds out of range, price out of range:
	// all four collected, no short-circuit.
	if len(problems) != 4 {
		t.Errorf("expected 4 problems, got %d: %v", len(problems), problems)
	}
}

func TestValidateListingDataAcceptsCompleteRow(t *testing.T) {
	row := validRow("123")

	ok, problems := ValidateListingData(row)
	if !ok {
		t.Errorf("expected valid row, got problems: %v", problems)
	}
}

func TestValidateListingDataRejectsMissingZpid(t *testing.T) {
	row := validRow("")

	ok, problems := ValidateListingData(row)
	if ok {
		t.Fatal("expected validation to fail without zpid")
	}
	if len(problems) != 1 || problems[0] != "missing zpid" {
		t.Errorf("expected missing zpid problem, got %v", problems)
	}
}

func TestValidateListingDataNilRow(t *testing.T) {
	ok, problems := ValidateListingData(nil)
	if ok || len(problems) == 0 {
		t.Error("nil listing should be invalid")
	}
}

func validRow(zpid string) *database.Listing {
	street := "1 Main St"
	city := "Windsor"
	state := "ON"
	beds := int64(3)
	baths := int64(2)
	area := int64(1500)
	price := float64(450000)

	return &database.Listing{
		Zpid:             zpid,
		AddressStreet:    &street,
		AddressCity:      &city,
		AddressState:     &state,
		Beds:             &beds,
		Baths:            &baths,
		Area:             &area,
		UnformattedPrice: &price,
	}
}

func ptrInt(n int64) *int64 { return &n }
