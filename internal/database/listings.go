package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// JustListedPage is one page of just-listed results plus the total count
// the dashboard needs for pagination.
type JustListedPage struct {
	Listings []*Listing `json:"listings"`
	Total    int64      `json:"total"`
}

// FetchJustListed returns a page of just-listed rows for the given service
// cities. Filters are pushed into the query where the database can apply
// them directly.
func (db *DB) FetchJustListed(ctx context.Context, cities []string, page, pageSize int, f *Filter) (*JustListedPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	q := db.WithContext(ctx).Model(&Listing{}).Where("status = ?", StatusJustListed)
	q = applyCityFilter(q, cities)
	q = applyListingFilters(q, f, time.Now())

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count just_listed listings (cities=%v, filter=%+v): %w", cities, f, err)
	}

	var listings []*Listing
	err := q.Order("lastseenat DESC, zpid").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("fetch just_listed listings (cities=%v, page=%d, filter=%+v): %w", cities, page, f, err)
	}

	return &JustListedPage{Listings: listings, Total: total}, nil
}

// FetchSoldSincePrev returns all sold rows that appeared since the previous
// completed run. The full city result set is always fetched first and then
// filtered in-process: the "since previous run" comparison needs the whole
// set, so numeric/date filters cannot be pushed into the query here.
func (db *DB) FetchSoldSincePrev(ctx context.Context, cities []string, f *Filter) ([]*Listing, error) {
	prevStart, err := db.previousRunStart(ctx)
	if err != nil {
		return nil, err
	}

	q := db.WithContext(ctx).Model(&Listing{}).Where("status = ?", StatusSold)
	q = applyCityFilter(q, cities)

	var all []*Listing
	if err := q.Order("lastseenat DESC, zpid").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("fetch sold listings (cities=%v): %w", cities, err)
	}

	now := time.Now()
	result := make([]*Listing, 0, len(all))
	for _, l := range all {
		if !prevStart.IsZero() && !l.LastSeenAt.After(prevStart) {
			continue
		}
		if !matchesFilter(l, f, now) {
			continue
		}
		result = append(result, l)
	}

	return result, nil
}

// previousRunStart returns the start time of the second most recent
// completed run, or the zero time when fewer than two runs exist.
func (db *DB) previousRunStart(ctx context.Context) (time.Time, error) {
	var runs []Run
	err := db.WithContext(ctx).
		Where("status = ?", RunStatusCompleted).
		Order("started_at DESC").
		Limit(2).
		Find(&runs).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch recent runs: %w", err)
	}

	if len(runs) < 2 {
		return time.Time{}, nil
	}
	return runs[1].StartedAt, nil
}

func applyCityFilter(q *gorm.DB, cities []string) *gorm.DB {
	switch len(cities) {
	case 0:
		return q
	case 1:
		return q.Where("lastcity = ?", cities[0])
	default:
		return q.Where("lastcity IN ?", cities)
	}
}

// applyListingFilters pushes filter conditions into the query. Only used on
// the just-listed path; the sold path filters in-process.
func applyListingFilters(q *gorm.DB, f *Filter, now time.Time) *gorm.DB {
	if f == nil {
		return q
	}

	if f.MinPrice != nil {
		q = q.Where("unformattedprice >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("unformattedprice <= ?", *f.MaxPrice)
	}
	if f.Beds != nil && *f.Beds > 0 {
		q = q.Where("beds >= ?", *f.Beds)
	}
	if f.Baths != nil && *f.Baths > 0 {
		q = q.Where("baths >= ?", *f.Baths)
	}
	if f.MinSqft != nil {
		q = q.Where("area >= ?", *f.MinSqft)
	}
	if f.MaxSqft != nil {
		q = q.Where("area <= ?", *f.MaxSqft)
	}
	if f.PropertyType != "" {
		q = q.Where("propertytype = ?", f.PropertyType)
	}
	if f.SearchTerm != "" {
		pattern := "%" + strings.ToLower(f.SearchTerm) + "%"
		q = q.Where("LOWER(addressstreet) LIKE ? OR LOWER(addresszipcode) LIKE ?", pattern, pattern)
	}

	start, end := f.DateRange.Bounds(now)
	if start != nil {
		q = q.Where("lastseenat >= ?", *start)
	}
	if end != nil {
		q = q.Where("lastseenat <= ?", *end)
	}

	return q
}

// matchesFilter applies the same filter semantics in-process for the sold
// path.
func matchesFilter(l *Listing, f *Filter, now time.Time) bool {
	if f == nil {
		return true
	}

	if f.MinPrice != nil && (l.UnformattedPrice == nil || *l.UnformattedPrice < *f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && (l.UnformattedPrice == nil || *l.UnformattedPrice > *f.MaxPrice) {
		return false
	}
	if f.Beds != nil && *f.Beds > 0 && (l.Beds == nil || *l.Beds < *f.Beds) {
		return false
	}
	if f.Baths != nil && *f.Baths > 0 && (l.Baths == nil || *l.Baths < *f.Baths) {
		return false
	}
	if f.MinSqft != nil && (l.Area == nil || *l.Area < *f.MinSqft) {
		return false
	}
	if f.MaxSqft != nil && (l.Area == nil || *l.Area > *f.MaxSqft) {
		return false
	}
	if f.PropertyType != "" && (l.PropertyType == nil || *l.PropertyType != f.PropertyType) {
		return false
	}

	if f.SearchTerm != "" {
		term := strings.ToLower(f.SearchTerm)
		street := ""
		if l.AddressStreet != nil {
			street = strings.ToLower(*l.AddressStreet)
		}
		zip := ""
		if l.AddressZipcode != nil {
			zip = strings.ToLower(*l.AddressZipcode)
		}
		if !strings.Contains(street, term) && !strings.Contains(zip, term) {
			return false
		}
	}

	start, end := f.DateRange.Bounds(now)
	if start != nil && l.LastSeenAt.Before(*start) {
		return false
	}
	if end != nil && l.LastSeenAt.After(*end) {
		return false
	}

	return true
}

// CityStats holds dashboard counts for one service city.
type CityStats struct {
	City       string `json:"city"`
	JustListed int64  `json:"just_listed"`
	Sold       int64  `json:"sold"`
}

// Stats returns per-city listing counts for the dashboard header.
func (db *DB) Stats(ctx context.Context, cities []string) ([]CityStats, error) {
	stats := make([]CityStats, 0, len(cities))
	for _, city := range cities {
		var justListed, sold int64
		err := db.WithContext(ctx).Model(&Listing{}).
			Where("lastcity = ? AND status = ?", city, StatusJustListed).
			Count(&justListed).Error
		if err != nil {
			return nil, fmt.Errorf("count just_listed for city %q: %w", city, err)
		}
		err = db.WithContext(ctx).Model(&Listing{}).
			Where("lastcity = ? AND status = ?", city, StatusSold).
			Count(&sold).Error
		if err != nil {
			return nil, fmt.Errorf("count sold for city %q: %w", city, err)
		}
		stats = append(stats, CityStats{City: city, JustListed: justListed, Sold: sold})
	}
	return stats, nil
}
