package repository

import "gorm.io/gorm"

type Repository struct {
	DB *gorm.DB

	// Repositories as interfaces for easier testing

	Run RunRepository
	Job JobRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:  db,
		Run: NewRunRepository(db),
		Job: NewJobRepository(db),
	}
}
