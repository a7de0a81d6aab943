package reveal

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

// ErrInsufficientCredits is returned when a reveal would charge more
// credits than the profile has left.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Service owns server-side reveal state. A reveal is a one-way transition:
// once a (user, listing) pair is recorded it stays revealed, and recording
// it again never charges a second credit.
type Service struct {
	db *database.DB
}

func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// Reveal unmasks one listing for a user, charging one credit only when the
// (user, zpid) pair is new. Returns whether a credit was actually charged.
func (s *Service) Reveal(ctx context.Context, userID, zpid string) (bool, error) {
	charged := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&database.Reveal{UserID: userID, Zpid: zpid})
		if insert.Error != nil {
			return fmt.Errorf("record reveal (user=%s, zpid=%s): %w", userID, zpid, insert.Error)
		}

		// Conflict means the listing was already revealed: a no-op, never
		// a second charge.
		if insert.RowsAffected == 0 {
			return nil
		}

		unlimited, err := isUnlimited(tx, userID)
		if err != nil {
			return err
		}
		if unlimited {
			return nil
		}

		if err := chargeCredits(tx, userID, 1); err != nil {
			return err
		}
		charged = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return charged, nil
}

// RevealMany unmasks a batch of listings, charging one credit per listing
// not already revealed. All-or-nothing: if the profile cannot cover every
// new reveal, nothing is revealed or charged.
func (s *Service) RevealMany(ctx context.Context, userID string, zpids []string) (int, error) {
	if len(zpids) == 0 {
		return 0, nil
	}

	charged := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []string
		err := tx.Model(&database.Reveal{}).
			Where("user_id = ? AND zpid IN ?", userID, zpids).
			Pluck("zpid", &existing).Error
		if err != nil {
			return fmt.Errorf("fetch existing reveals (user=%s): %w", userID, err)
		}

		seen := make(map[string]struct{}, len(existing))
		for _, z := range existing {
			seen[z] = struct{}{}
		}

		var fresh []*database.Reveal
		for _, z := range zpids {
			if _, ok := seen[z]; ok {
				continue
			}
			seen[z] = struct{}{}
			fresh = append(fresh, &database.Reveal{UserID: userID, Zpid: z})
		}

		if len(fresh) == 0 {
			return nil
		}

		unlimited, err := isUnlimited(tx, userID)
		if err != nil {
			return err
		}
		if !unlimited {
			if err := chargeCredits(tx, userID, len(fresh)); err != nil {
				return err
			}
			charged = len(fresh)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
			return fmt.Errorf("record %d reveals (user=%s): %w", len(fresh), userID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return charged, nil
}

// RevealedSet returns all zpids the user has revealed.
func (s *Service) RevealedSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	var zpids []string
	err := s.db.WithContext(ctx).Model(&database.Reveal{}).
		Where("user_id = ?", userID).
		Pluck("zpid", &zpids).Error
	if err != nil {
		return nil, fmt.Errorf("fetch revealed set (user=%s): %w", userID, err)
	}

	set := make(map[string]struct{}, len(zpids))
	for _, z := range zpids {
		set[z] = struct{}{}
	}
	return set, nil
}

func isUnlimited(tx *gorm.DB, userID string) (bool, error) {
	var profile database.Profile
	err := tx.Where("user_id = ?", userID).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch profile %s: %w", userID, err)
	}
	return profile.Unlimited, nil
}

// chargeCredits deducts atomically and fails when the balance cannot cover
// the charge, so concurrent reveals never drive a profile negative.
func chargeCredits(tx *gorm.DB, userID string, amount int) error {
	res := tx.Model(&database.Profile{}).
		Where("user_id = ? AND credits_remaining >= ?", userID, amount).
		Update("credits_remaining", gorm.Expr("credits_remaining - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("charge %d credits (user=%s): %w", amount, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}
