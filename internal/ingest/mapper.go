package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

// MapContext carries the scrape context a raw item was seen in.
type MapContext struct {
	City              string
	Page              int
	RunID             uint
	Status            string
	MaxJustListedPage int
}

// MapItemToRow transforms one raw scraped item into a canonical listing
// row, or nil when the item has no usable ID. It never returns an error:
// anomalies in the uncontrolled source are logged, bad numeric fields are
// nulled, and the caller filters out nils before inserting.
func MapItemToRow(item *RawItem, mctx MapContext) *database.Listing {
	if item == nil {
		return nil
	}

	id := item.ItemID()
	if id == "" {
		log.Printf("[ingest] Skipping item without zpid (city=%s, page=%d)", mctx.City, mctx.Page)
		return nil
	}

	maxPage := mctx.MaxJustListedPage
	if maxPage <= 0 {
		maxPage = 4
	}

	row := &database.Listing{
		Zpid: id,

		AddressStreet:  streetChain.extract(item),
		AddressCity:    cityChain.extract(item),
		AddressState:   stateChain.extract(item),
		AddressZipcode: zipChain.extract(item),

		Price:            priceTextChain.extract(item),
		UnformattedPrice: PositiveFloat(unformattedPriceChain.extract(item)),

		Beds:  PositiveInt(bedsChain.extract(item)),
		Baths: PositiveInt(bathsChain.extract(item)),
		Area:  PositiveInt(areaChain.extract(item)),

		StatusText:   optional(item.StatusText),
		PropertyType: propertyTypeChain.extract(item),
		DetailURL:    optional(item.DetailURL),
		ImgSrc:       optional(item.ImgSrc),
		BrokerName:   optional(item.BrokerName),
		OpenHouse:    optional(item.OpenHouse),
		HasImage:     item.HasImage,
		HasVideo:     item.HasVideo,
		Has3DModel:   item.Has3DModel,

		LatLong:        serializeLatLong(item),
		HdpData:        serializeRaw(item.HdpData, id, "hdpData"),
		CarouselPhotos: serializeRaw(item.CarouselPhotos, id, "carouselPhotos"),

		Status:       mctx.Status,
		LastCity:     mctx.City,
		LastRunID:    mctx.RunID,
		LastPage:     mctx.Page,
		IsJustListed: mctx.Page <= maxPage,
		LastSeenAt:   time.Now().UTC(),
	}

	return row
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// serializeRaw stores a nested JSON payload as text. Invalid JSON from the
// source is dropped with a warning rather than stored broken.
func serializeRaw(raw json.RawMessage, id, field string) *string {
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		log.Printf("[ingest] Dropping invalid %s JSON for item %s", field, id)
		return nil
	}
	s := string(raw)
	return &s
}

// serializeLatLong prefers the top-level latLong blob and falls back to
// coordinates buried in hdpData.
func serializeLatLong(item *RawItem) *string {
	if s := serializeRaw(item.LatLong, item.Zpid, "latLong"); s != nil {
		return s
	}

	info := item.homeInfo()
	if info.Latitude == 0 && info.Longitude == 0 {
		return nil
	}
	s := fmt.Sprintf(`{"latitude":%g,"longitude":%g}`, info.Latitude, info.Longitude)
	return &s
}
