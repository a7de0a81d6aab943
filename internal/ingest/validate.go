package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

// Range bounds for source sanity checks. The source is uncontrolled, so
// anything outside these is treated as garbage.
const (
	MaxBeds  = 20
	MaxBaths = 20
	MaxArea  = 100_000
	MaxPrice = 100_000_000
)

// PositiveInt coerces a raw source value to a positive whole number.
// Zero, negative, non-finite, and unparseable values all yield nil;
// fractional values floor. Absent and nonsensical inputs are deliberately
// indistinguishable: the caller only ever sees "usable number or nothing".
func PositiveInt(v any) *int64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return nil
	}
	n := int64(math.Floor(f))
	if n <= 0 {
		return nil
	}
	return &n
}

// PositiveFloat is the same policy without flooring, used for prices.
func PositiveFloat(v any) *float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return nil
	}
	return &f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ValidateListingData checks a mapped row and returns all problems found.
// This is advisory: ingestion only gates on the zpid check, while the
// display path suppresses any row that fails the full set. Ingestion stays
// lenient so data is not lost over a formatting glitch; display stays
// strict so garbage never reaches paying users.
func ValidateListingData(row *database.Listing) (bool, []string) {
	var problems []string

	if row == nil {
		return false, []string{"listing is nil"}
	}

	if strings.TrimSpace(row.Zpid) == "" {
		problems = append(problems, "missing zpid")
	}
	if row.AddressStreet == nil || strings.TrimSpace(*row.AddressStreet) == "" {
		problems = append(problems, "missing street address")
	}
	if row.AddressCity == nil || strings.TrimSpace(*row.AddressCity) == "" {
		problems = append(problems, "missing city")
	}
	if row.AddressState == nil || strings.TrimSpace(*row.AddressState) == "" {
		problems = append(problems, "missing state")
	}

	if row.Beds != nil && (*row.Beds < 0 || *row.Beds > MaxBeds) {
		problems = append(problems, fmt.Sprintf("beds out of range: %d", *row.Beds))
	}
	if row.Baths != nil && (*row.Baths < 0 || *row.Baths > MaxBaths) {
		problems = append(problems, fmt.Sprintf("baths out of range: %d", *row.Baths))
	}
	if row.Area != nil && (*row.Area < 0 || *row.Area > MaxArea) {
		problems = append(problems, fmt.Sprintf("area out of range: %d", *row.Area))
	}
	if row.UnformattedPrice != nil && (*row.UnformattedPrice < 0 || *row.UnformattedPrice > MaxPrice) {
		problems = append(problems, fmt.Sprintf("price out of range: %.0f", *row.UnformattedPrice))
	}

	return len(problems) == 0, problems
}
