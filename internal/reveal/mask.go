package reveal

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Owoblo/sold2move-sub003/internal/database"
	"github.com/Owoblo/sold2move-sub003/internal/ingest"
)

// Placeholder strings shown in place of sensitive fields until a listing
// is revealed.
const (
	MaskedAddress      = "***** ******* **"
	MaskedPrice        = "*****"
	MaskedZip          = "*****"
	MaskedBedsBaths    = "***"
	MaskedArea         = "****"
	MaskedPropertyType = "****"
)

// ListingView is the frontend-facing shape of a listing: camelCase field
// names mapped from the lowercase database columns, with sensitive fields
// already masked server-side for unrevealed listings.
type ListingView struct {
	Zpid             string          `json:"zpid"`
	AddressStreet    string          `json:"addressStreet"`
	AddressCity      string          `json:"addressCity"`
	AddressState     string          `json:"addressState"`
	AddressZipcode   string          `json:"addressZipcode"`
	Price            string          `json:"price"`
	UnformattedPrice *float64        `json:"unformattedPrice,omitempty"`
	Beds             string          `json:"beds"`
	Baths            string          `json:"baths"`
	Area             string          `json:"area"`
	StatusText       string          `json:"statusText"`
	PropertyType     string          `json:"propertyType"`
	DetailURL        string          `json:"detailUrl,omitempty"`
	ImgSrc           string          `json:"imgSrc,omitempty"`
	BrokerName       string          `json:"brokerName,omitempty"`
	OpenHouse        string          `json:"openHouse,omitempty"`
	LatLong          json.RawMessage `json:"latLong,omitempty"`
	CarouselPhotos   json.RawMessage `json:"carouselPhotos,omitempty"`
	IsJustListed     bool            `json:"isJustListed"`
	LastSeenAt       time.Time       `json:"lastSeenAt"`
	Revealed         bool            `json:"revealed"`
}

// ToView maps one row to its frontend shape. A row that fails validation
// is suppressed (nil) rather than rendered; display is strict even though
// ingestion is lenient. Masking happens here, before the row ever leaves
// the server.
func ToView(l *database.Listing, revealed bool) *ListingView {
	if ok, problems := ingest.ValidateListingData(l); !ok {
		log.Printf("[view] Suppressing listing %q: %s", safeZpid(l), strings.Join(problems, "; "))
		return nil
	}

	v := &ListingView{
		Zpid:         l.Zpid,
		AddressCity:  deref(l.AddressCity),
		AddressState: deref(l.AddressState),
		StatusText:   deref(l.StatusText),
		IsJustListed: l.IsJustListed,
		LastSeenAt:   l.LastSeenAt,
		Revealed:     revealed,
	}

	if !revealed {
		v.AddressStreet = MaskedAddress
		v.AddressZipcode = MaskedZip
		v.Price = MaskedPrice
		v.Beds = MaskedBedsBaths
		v.Baths = MaskedBedsBaths
		v.Area = MaskedArea
		v.PropertyType = MaskedPropertyType
		return v
	}

	v.AddressStreet = deref(l.AddressStreet)
	v.AddressZipcode = deref(l.AddressZipcode)
	v.Price = priceText(l)
	v.UnformattedPrice = l.UnformattedPrice
	v.Beds = countText(l.Beds)
	v.Baths = countText(l.Baths)
	v.Area = countText(l.Area)
	v.PropertyType = deref(l.PropertyType)
	v.DetailURL = deref(l.DetailURL)
	v.ImgSrc = deref(l.ImgSrc)
	v.BrokerName = deref(l.BrokerName)
	v.OpenHouse = deref(l.OpenHouse)
	v.LatLong = decodeBlob(l.LatLong, l.Zpid, "latlong")
	v.CarouselPhotos = decodeBlob(l.CarouselPhotos, l.Zpid, "carouselphotos")

	return v
}

// FormatListings maps rows to views, masking everything the user has not
// revealed. Unlimited profiles see everything. Invalid rows drop out.
func FormatListings(rows []*database.Listing, revealed map[string]struct{}, unlimited bool) []*ListingView {
	views := make([]*ListingView, 0, len(rows))
	for _, row := range rows {
		show := unlimited
		if !show && row != nil {
			_, show = revealed[row.Zpid]
		}
		if v := ToView(row, show); v != nil {
			views = append(views, v)
		}
	}
	return views
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func safeZpid(l *database.Listing) string {
	if l == nil {
		return ""
	}
	return l.Zpid
}

// priceText prefers the source's display text and falls back to formatting
// the numeric price.
func priceText(l *database.Listing) string {
	if l.Price != nil && *l.Price != "" {
		return *l.Price
	}
	if l.UnformattedPrice != nil {
		return FormatPrice(*l.UnformattedPrice)
	}
	return ""
}

func countText(n *int64) string {
	if n == nil {
		return ""
	}
	return groupDigits(*n)
}

// FormatPrice renders a numeric price as display text, e.g. "$450,000".
func FormatPrice(p float64) string {
	return "$" + groupDigits(int64(p))
}

func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + groupDigits(-n)
	}
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// decodeBlob parses a text-encoded JSON column back into raw JSON for the
// response. Broken payloads are omitted, never rendered.
func decodeBlob(blob *string, zpid, column string) json.RawMessage {
	if blob == nil || *blob == "" {
		return nil
	}
	if !json.Valid([]byte(*blob)) {
		log.Printf("[view] Invalid JSON in %s for listing %s, omitting", column, zpid)
		return nil
	}
	return json.RawMessage(*blob)
}
