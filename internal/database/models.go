package database

import (
	"strings"
	"time"
)

// Listing statuses, transitioned by the scrape pipeline.
const (
	StatusJustListed = "just_listed"
	StatusSold       = "sold"
)

// Listing is one scraped property observation, keyed by the source's zpid.
// Column names match the canonical lowercase schema so the table stays
// compatible with the existing Postgres database.
type Listing struct {
	Zpid string `json:"zpid" gorm:"column:zpid;primaryKey;size:32"`

	AddressStreet  *string `json:"addressstreet" gorm:"column:addressstreet"`
	AddressCity    *string `json:"addresscity" gorm:"column:addresscity"`
	AddressState   *string `json:"addressstate" gorm:"column:addressstate"`
	AddressZipcode *string `json:"addresszipcode" gorm:"column:addresszipcode"`

	Price            *string  `json:"price" gorm:"column:price"`
	UnformattedPrice *float64 `json:"unformattedprice" gorm:"column:unformattedprice;index"`

	Beds  *int64 `json:"beds" gorm:"column:beds"`
	Baths *int64 `json:"baths" gorm:"column:baths"`
	Area  *int64 `json:"area" gorm:"column:area"`

	StatusText   *string `json:"statustext" gorm:"column:statustext"`
	PropertyType *string `json:"propertytype" gorm:"column:propertytype"`
	DetailURL    *string `json:"detailurl" gorm:"column:detailurl"`
	ImgSrc       *string `json:"imgsrc" gorm:"column:imgsrc"`
	BrokerName   *string `json:"brokername" gorm:"column:brokername"`
	OpenHouse    *string `json:"openhouse" gorm:"column:openhouse"`
	HasImage     *bool   `json:"hasimage" gorm:"column:hasimage"`
	HasVideo     *bool   `json:"hasvideo" gorm:"column:hasvideo"`
	Has3DModel   *bool   `json:"has3dmodel" gorm:"column:has3dmodel"`

	// JSON payloads from the source, stored as text-encoded JSON and parsed
	// lazily at display time.
	LatLong        *string `json:"latlong" gorm:"column:latlong;type:text"`
	HdpData        *string `json:"hdpdata" gorm:"column:hdpdata;type:text"`
	CarouselPhotos *string `json:"carouselphotos" gorm:"column:carouselphotos;type:text"`

	// Provenance from the scrape run that last saw this listing.
	Status       string    `json:"status" gorm:"column:status;index;default:just_listed"`
	LastCity     string    `json:"lastcity" gorm:"column:lastcity;index"`
	LastRunID    uint      `json:"lastrunid" gorm:"column:lastrunid;index"`
	LastPage     int       `json:"lastpage" gorm:"column:lastpage"`
	IsJustListed bool      `json:"isjustlisted" gorm:"column:isjustlisted"`
	LastSeenAt   time.Time `json:"lastseenat" gorm:"column:lastseenat;index"`
}

func (Listing) TableName() string { return "listings" }

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one execution of the scraper, used as a recency marker for the
// "sold since previous run" window.
type Run struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	StartedAt        time.Time  `json:"started_at" gorm:"index;not null"`
	FinishedAt       *time.Time `json:"finished_at"`
	Status           string     `json:"status" gorm:"size:20;default:running"`
	City             string     `json:"city" gorm:"size:100"`
	ListingsFound    int        `json:"listings_found"`
	ListingsUpserted int        `json:"listings_upserted"`
	ListingsFailed   int        `json:"listings_failed"`
}

// Reveal records that a user spent a credit to unmask one listing.
// The (user_id, zpid) pair is unique so re-revealing is a no-op.
type Reveal struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"size:64;not null;uniqueIndex:ux_reveals_user_zpid,priority:1"`
	Zpid      string    `json:"zpid" gorm:"size:32;not null;uniqueIndex:ux_reveals_user_zpid,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is a dashboard user's billing/reveal state. ServiceCities is the
// comma-separated list of cities the user subscribed to; queries without an
// explicit city fall back to it.
type Profile struct {
	UserID           string    `json:"user_id" gorm:"primaryKey;size:64"`
	Email            string    `json:"email" gorm:"size:255"`
	CreditsRemaining int       `json:"credits_remaining" gorm:"default:0"`
	Unlimited        bool      `json:"unlimited" gorm:"default:false"`
	TelegramChatID   int64     `json:"telegram_chat_id"`
	ServiceCities    string    `json:"service_cities" gorm:"size:500"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CityList splits the stored service cities into a clean slice.
func (p *Profile) CityList() []string {
	if p == nil || p.ServiceCities == "" {
		return nil
	}
	parts := strings.Split(p.ServiceCities, ",")
	cities := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cities = append(cities, trimmed)
		}
	}
	return cities
}

// Alert is a per-user notification rule: new just-listed properties in a
// city within a price band trigger a Telegram message.
type Alert struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"size:64;not null;index"`
	City      string    `json:"city" gorm:"size:100;not null"`
	MinPrice  float64   `json:"min_price" gorm:"default:0"`
	MaxPrice  float64   `json:"max_price" gorm:"default:0"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`

	Profile Profile `json:"profile" gorm:"foreignKey:UserID;references:UserID"`
}

// BillingEvent stores provider webhook payloads with a unique provider
// event ID so credit grants are idempotent.
type BillingEvent struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Provider        string     `json:"provider" gorm:"size:20;not null;uniqueIndex:ux_billing_provider_event,priority:1"`
	ProviderEventID string     `json:"provider_event_id" gorm:"size:191;not null;uniqueIndex:ux_billing_provider_event,priority:2"`
	EventType       string     `json:"event_type" gorm:"size:100;not null"`
	PayloadJSON     string     `json:"payload_json" gorm:"type:text"`
	CreditsGranted  int        `json:"credits_granted"`
	ProcessedAt     *time.Time `json:"processed_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
