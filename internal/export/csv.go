package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Owoblo/sold2move-sub003/internal/reveal"
)

// header is the fixed column contract for mail-merge tooling. Order and
// spelling are load-bearing: downstream templates reference these names.
var header = []string{
	"Address", "City", "State", "Zip Code", "Price",
	"Beds", "Baths", "Sq. Ft.", "Property Type", "Date Listed", "ZPID",
}

// Listings writes the given views as CSV. Views arrive already masked, so
// unrevealed listings export their placeholder strings, not real values.
func Listings(w io.Writer, views []*reveal.ListingView) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, v := range views {
		row := []string{
			v.AddressStreet,
			v.AddressCity,
			v.AddressState,
			v.AddressZipcode,
			v.Price,
			v.Beds,
			v.Baths,
			v.Area,
			v.PropertyType,
			v.LastSeenAt.Format("2006-01-02"),
			v.Zpid,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row for %s: %w", v.Zpid, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
