package database

import "gorm.io/gorm"

func (db *DB) CreateAlert(userID, city string, minPrice, maxPrice float64) (*Alert, error) {
	alert := &Alert{
		UserID:   userID,
		City:     city,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		IsActive: true,
	}

	err := db.Create(alert).Error
	return alert, err
}

func (db *DB) GetUserAlerts(userID string) ([]*Alert, error) {
	var alerts []*Alert
	err := db.Where("user_id = ?", userID).Order("created_at desc").Find(&alerts).Error
	return alerts, err
}

func (db *DB) GetAlertByID(alertID uint, userID string) (*Alert, error) {
	var alert Alert
	err := db.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (db *DB) DeleteAlert(alertID uint, userID string) error {
	return db.Where("id = ? AND user_id = ?", alertID, userID).Delete(&Alert{}).Error
}

func (db *DB) ToggleAlert(alertID uint, userID string) error {
	return db.Model(&Alert{}).
		Where("id = ? AND user_id = ?", alertID, userID).
		Update("is_active", gorm.Expr("NOT is_active")).Error
}

// GetActiveAlerts returns all active alerts with their profiles preloaded
// so the notifier can reach the Telegram chat IDs.
func (db *DB) GetActiveAlerts() ([]*Alert, error) {
	var alerts []*Alert
	err := db.Where("is_active = ?", true).Preload("Profile").Find(&alerts).Error
	return alerts, err
}
