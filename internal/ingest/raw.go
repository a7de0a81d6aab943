package ingest

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
)

// RawItem is one listing payload as scraped from the source. Field types
// are deliberately loose: the source is an uncontrolled third party and
// sends numbers, numeric strings, or garbage interchangeably.
type RawItem struct {
	Zpid             string          `json:"zpid"`
	Address          string          `json:"address"`
	AddressStreet    string          `json:"addressStreet"`
	AddressCity      string          `json:"addressCity"`
	AddressState     string          `json:"addressState"`
	AddressZipcode   string          `json:"addressZipcode"`
	Price            string          `json:"price"`
	UnformattedPrice any             `json:"unformattedPrice"`
	Beds             any             `json:"beds"`
	Baths            any             `json:"baths"`
	Area             any             `json:"area"`
	StatusText       string          `json:"statusText"`
	DetailURL        string          `json:"detailUrl"`
	ImgSrc           string          `json:"imgSrc"`
	BrokerName       string          `json:"brokerName"`
	OpenHouse        string          `json:"openHouse"`
	HasImage         *bool           `json:"hasImage"`
	HasVideo         *bool           `json:"hasVideo"`
	Has3DModel       *bool           `json:"has3DModel"`
	LatLong          json.RawMessage `json:"latLong"`
	CarouselPhotos   json.RawMessage `json:"carouselPhotos"`
	HdpData          json.RawMessage `json:"hdpData"`

	hdp *hdpData
}

// hdpData is the nested source payload shape used by older feed versions.
type hdpData struct {
	HomeInfo homeInfo `json:"homeInfo"`
}

type homeInfo struct {
	Zpid          any     `json:"zpid"`
	StreetAddress string  `json:"streetAddress"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Zipcode       string  `json:"zipcode"`
	Price         any     `json:"price"`
	Bedrooms      any     `json:"bedrooms"`
	Bathrooms     any     `json:"bathrooms"`
	LivingArea    any     `json:"livingArea"`
	HomeType      string  `json:"homeType"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// homeInfo lazily decodes the nested hdpData payload, once per item.
func (it *RawItem) homeInfo() homeInfo {
	if it.hdp == nil {
		it.hdp = &hdpData{}
		if len(it.HdpData) > 0 {
			if err := json.Unmarshal(it.HdpData, it.hdp); err != nil {
				log.Printf("[ingest] Failed to parse hdpData for item %q: %v", it.Zpid, err)
			}
		}
	}
	return it.hdp.HomeInfo
}

// stringChain is an ordered list of accessors tried until one yields a
// non-empty value. Keeping the fallback order as data (instead of inline
// expressions scattered through the mapper) keeps compatibility with older
// and newer source payload shapes testable per field.
type stringChain []func(*RawItem) string

func (c stringChain) extract(it *RawItem) *string {
	for _, get := range c {
		if v := strings.TrimSpace(get(it)); v != "" {
			return &v
		}
	}
	return nil
}

// numberChain is the numeric counterpart: the first non-nil raw value wins,
// before any validation is applied.
type numberChain []func(*RawItem) any

func (c numberChain) extract(it *RawItem) any {
	for _, get := range c {
		if v := get(it); v != nil {
			return v
		}
	}
	return nil
}

// Per-field fallback chains: normalized top-level field first, then the
// nested hdpData path, then any generic fallback.
var (
	streetChain = stringChain{
		func(it *RawItem) string { return it.AddressStreet },
		func(it *RawItem) string { return it.homeInfo().StreetAddress },
		func(it *RawItem) string { return it.Address },
	}

	cityChain = stringChain{
		func(it *RawItem) string { return it.AddressCity },
		func(it *RawItem) string { return it.homeInfo().City },
	}

	stateChain = stringChain{
		func(it *RawItem) string { return it.AddressState },
		func(it *RawItem) string { return it.homeInfo().State },
	}

	zipChain = stringChain{
		func(it *RawItem) string { return it.AddressZipcode },
		func(it *RawItem) string { return it.homeInfo().Zipcode },
	}

	priceTextChain = stringChain{
		func(it *RawItem) string { return it.Price },
	}

	propertyTypeChain = stringChain{
		func(it *RawItem) string { return it.homeInfo().HomeType },
	}

	unformattedPriceChain = numberChain{
		func(it *RawItem) any { return it.UnformattedPrice },
		func(it *RawItem) any { return it.homeInfo().Price },
	}

	bedsChain = numberChain{
		func(it *RawItem) any { return it.Beds },
		func(it *RawItem) any { return it.homeInfo().Bedrooms },
	}

	bathsChain = numberChain{
		func(it *RawItem) any { return it.Baths },
		func(it *RawItem) any { return it.homeInfo().Bathrooms },
	}

	areaChain = numberChain{
		func(it *RawItem) any { return it.Area },
		func(it *RawItem) any { return it.homeInfo().LivingArea },
	}
)

// ItemID resolves the external ID from the top-level zpid or the nested
// hdpData fallback path. Returns "" when neither is present.
func (it *RawItem) ItemID() string {
	if id := coerceID(it.Zpid); id != "" {
		return id
	}
	return coerceID(it.homeInfo().Zpid)
}

// coerceID turns a string or numeric source ID into its canonical string
// form.
func coerceID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}
