package adapter

import (
	"fmt"

	"github.com/porter-dev/porter/api/server/shared/config/env"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a new gorm database instance
func New(conf *env.DBConf) (*gorm.DB, error) {
	gormConf := &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		FullSaveAssociations: true,
	}

	if conf.SQLLite {
		db, err := gorm.Open(sqlite.Open(conf.SQLLitePath), gormConf)

		if err != nil {
			return nil, fmt.Errorf("could not open sqlite database at %s: %w", conf.SQLLitePath, err)
		}

		// sqlite only tolerates a single writer
		sqlDB, err := db.DB()

		if err != nil {
			return nil, err
		}

		sqlDB.SetMaxOpenConns(1)

		return db, nil
	}

	dsn := fmt.Sprintf(
		"user=%s password=%s port=%d host=%s",
		conf.Username,
		conf.Password,
		conf.Port,
		conf.Host,
	)

	if conf.ForceSSL {
		dsn = dsn + " sslmode=require"
	} else {
		dsn = dsn + " sslmode=disable"
	}

	if conf.DbName != "" {
		dsn = dsn + " dbname=" + conf.DbName
	}

	return gorm.Open(postgres.Open(dsn), gormConf)
}
