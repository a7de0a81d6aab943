package database

import (
	"strings"

	"gorm.io/gorm"
)

func (db *DB) CreateOrUpdateProfile(userID, email string) (*Profile, error) {
	profile := &Profile{}

	result := db.Where("user_id = ?", userID).First(profile)

	if result.Error == gorm.ErrRecordNotFound {
		profile = &Profile{
			UserID: userID,
			Email:  email,
		}
		err := db.Create(profile).Error
		return profile, err
	}
	if result.Error != nil {
		return nil, result.Error
	}

	if email != "" {
		profile.Email = email
	}
	err := db.Save(profile).Error
	return profile, err
}

func (db *DB) GetProfile(userID string) (*Profile, error) {
	var profile Profile
	err := db.Where("user_id = ?", userID).First(&profile).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// AddCredits grants credits to a profile, creating it if needed.
func (db *DB) AddCredits(userID string, credits int) error {
	profile, err := db.CreateOrUpdateProfile(userID, "")
	if err != nil {
		return err
	}

	return db.Model(&Profile{}).
		Where("user_id = ?", profile.UserID).
		Update("credits_remaining", gorm.Expr("credits_remaining + ?", credits)).Error
}

// SetServiceCities stores the user's subscribed cities as a comma list.
func (db *DB) SetServiceCities(userID string, cities []string) error {
	return db.Model(&Profile{}).
		Where("user_id = ?", userID).
		Update("service_cities", strings.Join(cities, ",")).Error
}

// SetTelegramChat links a Telegram chat to a profile for alerts.
func (db *DB) SetTelegramChat(userID string, chatID int64) error {
	return db.Model(&Profile{}).
		Where("user_id = ?", userID).
		Update("telegram_chat_id", chatID).Error
}
