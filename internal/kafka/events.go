package kafka

import (
	"time"
)

const (
	EventScrapeRequest = "scrape_request"
	EventRunCompleted  = "run_completed"
	EventNewListings   = "new_listings"
)

// ScrapeRequestEvent asks the ingestor to run a scrape cycle now. An empty
// City means all configured service cities.
type ScrapeRequestEvent struct {
	EventType string    `json:"event_type"`
	City      string    `json:"city"`
	Timestamp time.Time `json:"timestamp"`
}

// RunCompletedEvent announces a finished scrape run with its counters.
type RunCompletedEvent struct {
	EventType        string    `json:"event_type"`
	RunID            uint      `json:"run_id"`
	City             string    `json:"city"`
	Status           string    `json:"status"`
	ListingsFound    int       `json:"listings_found"`
	ListingsUpserted int       `json:"listings_upserted"`
	ListingsFailed   int       `json:"listings_failed"`
	FinishedAt       time.Time `json:"finished_at"`
}

// ListingSummary is the slim listing shape carried in events. Events only
// need enough to match alerts; the dashboard reads full rows from Postgres.
type ListingSummary struct {
	Zpid             string   `json:"zpid"`
	City             string   `json:"city"`
	Price            string   `json:"price"`
	UnformattedPrice *float64 `json:"unformatted_price"`
	Status           string   `json:"status"`
}

// NewListingsEvent announces freshly upserted listings from one run.
type NewListingsEvent struct {
	EventType string           `json:"event_type"`
	RunID     uint             `json:"run_id"`
	City      string           `json:"city"`
	Listings  []ListingSummary `json:"listings"`
	FoundAt   time.Time        `json:"found_at"`
}
