package db

import (
	"riskdesk/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.TradingAccount{},
		&models.DailyStatsRecord{},
		&models.DrawdownAlert{},
		&models.PsychologyLog{},
		&models.Notification{},
		&models.PushSubscription{},
		&models.TradingSignal{},
		&models.Withdrawal{},
		&models.SystemSetting{},
		&models.OTPCode{},
	)
}
