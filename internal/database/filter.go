package database

import (
	"encoding/json"
	"time"
)

// DateRange is either a named preset ("7", "30", "all", meaning last N days) or a
// custom inclusive range. The frontend sends both shapes, so it unmarshals
// from a bare JSON string or from {"type":"custom",...}.
type DateRange struct {
	Preset    string `json:"-"`
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (d *DateRange) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &d.Preset)
	}

	type alias DateRange
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = DateRange(a)
	return nil
}

// Bounds resolves the range to inclusive time bounds relative to now.
// A nil result on either side means unbounded.
func (d *DateRange) Bounds(now time.Time) (start, end *time.Time) {
	if d == nil {
		return nil, nil
	}

	if d.Type == "custom" {
		if t, err := time.Parse("2006-01-02", d.StartDate); err == nil {
			start = &t
		}
		if t, err := time.Parse("2006-01-02", d.EndDate); err == nil {
			// Inclusive end bound: extend to the end of the day.
			t = t.Add(24*time.Hour - time.Nanosecond)
			end = &t
		}
		return start, end
	}

	switch d.Preset {
	case "7":
		t := now.AddDate(0, 0, -7)
		return &t, nil
	case "30":
		t := now.AddDate(0, 0, -30)
		return &t, nil
	default:
		// "all" or unknown preset: no bound.
		return nil, nil
	}
}

// Filter is the client-constructed query object. It is never persisted;
// callers rebuild it per request.
type Filter struct {
	CityName     string     `json:"city_name"`
	SearchTerm   string     `json:"searchTerm"`
	MinPrice     *float64   `json:"minPrice"`
	MaxPrice     *float64   `json:"maxPrice"`
	Beds         *int64     `json:"beds"`
	Baths        *int64     `json:"baths"`
	PropertyType string     `json:"propertyType"`
	MinSqft      *int64     `json:"minSqft"`
	MaxSqft      *int64     `json:"maxSqft"`
	DateRange    *DateRange `json:"dateRange"`
}

// Validate checks the filter for internal consistency and returns all
// problems as human-readable messages. An empty slice means valid.
func (f *Filter) Validate() []string {
	var problems []string

	if f.MinPrice != nil && *f.MinPrice < 0 {
		problems = append(problems, "Minimum price cannot be negative")
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		problems = append(problems, "Maximum price cannot be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		problems = append(problems, "Minimum price cannot be greater than maximum")
	}

	if f.MinSqft != nil && *f.MinSqft < 0 {
		problems = append(problems, "Minimum square footage cannot be negative")
	}
	if f.MaxSqft != nil && *f.MaxSqft < 0 {
		problems = append(problems, "Maximum square footage cannot be negative")
	}
	if f.MinSqft != nil && f.MaxSqft != nil && *f.MinSqft > *f.MaxSqft {
		problems = append(problems, "Minimum square footage cannot be greater than maximum")
	}

	if f.Beds != nil && *f.Beds < 0 {
		problems = append(problems, "Beds cannot be negative")
	}
	if f.Baths != nil && *f.Baths < 0 {
		problems = append(problems, "Baths cannot be negative")
	}

	return problems
}
