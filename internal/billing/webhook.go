package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

// ErrBadPayload marks webhook bodies that can never be processed. Callers
// should treat it as permanent; everything else is worth a provider retry.
var ErrBadPayload = errors.New("invalid webhook payload")

// Service turns payment-provider webhook events into credit grants. Events
// are stored first with a unique provider event ID, so a redelivered
// webhook never grants credits twice.
type Service struct {
	db *database.DB
}

func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// payload is the subset of the provider's event body we act on.
type payload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ClientReferenceID string `json:"client_reference_id"`
			Metadata          struct {
				UserID  string `json:"user_id"`
				Credits string `json:"credits"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ProcessWebhook records the event and, for completed checkouts, grants
// the purchased credits. The event row and the grant commit or roll back
// together: a failed grant leaves no stored event, so the provider's
// redelivery gets a clean attempt instead of the duplicate path. Returns
// the stored event row.
func (s *Service) ProcessWebhook(provider string, body []byte) (*database.BillingEvent, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse %s webhook: %v: %w", provider, err, ErrBadPayload)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%s webhook has no event id: %w", provider, ErrBadPayload)
	}

	event := &database.BillingEvent{
		Provider:        provider,
		ProviderEventID: p.ID,
		EventType:       p.Type,
		PayloadJSON:     string(body),
	}

	duplicate := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
		if insert.Error != nil {
			return fmt.Errorf("store %s event %s: %w", provider, p.ID, insert.Error)
		}
		if insert.RowsAffected == 0 {
			duplicate = true
			return nil
		}

		if p.Type != "checkout.session.completed" {
			return nil
		}

		userID := p.Data.Object.ClientReferenceID
		if userID == "" {
			userID = p.Data.Object.Metadata.UserID
		}
		credits, _ := strconv.Atoi(p.Data.Object.Metadata.Credits)

		if userID == "" || credits <= 0 {
			log.Printf("[billing] Completed checkout %s has no usable user/credits, skipping grant", p.ID)
			return nil
		}

		if err := grantCredits(tx, userID, credits); err != nil {
			return fmt.Errorf("grant %d credits to %s for event %s: %w", credits, userID, p.ID, err)
		}

		now := time.Now().UTC()
		event.ProcessedAt = &now
		event.CreditsGranted = credits
		if err := tx.Save(event).Error; err != nil {
			return fmt.Errorf("mark %s event %s processed: %w", provider, p.ID, err)
		}

		log.Printf("[billing] Granted %d credits to %s (event %s)", credits, userID, p.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if duplicate {
		// Redelivery of a fully processed event. No second grant.
		log.Printf("[billing] Duplicate %s event %s ignored", provider, p.ID)
		var existing database.BillingEvent
		err := s.db.Where("provider = ? AND provider_event_id = ?", provider, p.ID).
			First(&existing).Error
		if err != nil {
			return nil, fmt.Errorf("fetch stored %s event %s: %w", provider, p.ID, err)
		}
		return &existing, nil
	}

	return event, nil
}

// grantCredits increments the profile's balance inside the caller's
// transaction, creating the profile if needed.
func grantCredits(tx *gorm.DB, userID string, credits int) error {
	profile := &database.Profile{UserID: userID}
	if err := tx.Where("user_id = ?", userID).FirstOrCreate(profile).Error; err != nil {
		return err
	}

	return tx.Model(&database.Profile{}).
		Where("user_id = ?", userID).
		Update("credits_remaining", gorm.Expr("credits_remaining + ?", credits)).Error
}
