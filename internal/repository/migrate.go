package repository

import (
	"github.com/porter-dev/matrix-agent/internal/models"
	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB, debug bool) error {
	instanceDB := db

	if debug {
		instanceDB = instanceDB.Debug()
	}

	return instanceDB.AutoMigrate(
		&models.Run{},
		&models.Job{},
		&models.Step{},
	)
}
