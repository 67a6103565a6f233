//go:generate mockgen -source=job.go -destination=mocks/job.go
package repository

import (
	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/internal/utils"
	"gorm.io/gorm"
)

// JobRepository wraps all actions related to a single job of a run
type JobRepository interface {
	ReadJob(uid string) (*models.Job, error)
	UpdateJob(job *models.Job) (*models.Job, error)
	ListJobsForRun(runID uint, filter *utils.ListJobsFilter) ([]*models.Job, error)
}

type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository returns pointer to repo along with the db
func NewJobRepository(db *gorm.DB) JobRepository {
	return jobRepository{db}
}

func (r jobRepository) ReadJob(uid string) (*models.Job, error) {
	job := &models.Job{}

	if err := r.db.Preload("Steps").Where("unique_id = ?", uid).First(job).Error; err != nil {
		return nil, err
	}

	return job, nil
}

// UpdateJob saves the job and its steps
func (r jobRepository) UpdateJob(job *models.Job) (*models.Job, error) {
	if err := r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(job).Error; err != nil {
		return nil, err
	}

	return job, nil
}

func (r jobRepository) ListJobsForRun(runID uint, filter *utils.ListJobsFilter) ([]*models.Job, error) {
	var jobs []*models.Job

	db := r.db.Where("run_id = ?", runID)

	if filter != nil && filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	if filter != nil && filter.WorkflowJob != nil {
		db = db.Where("workflow_job = ?", *filter.WorkflowJob)
	}

	if err := db.Preload("Steps").Order("id asc").Find(&jobs).Error; err != nil {
		return nil, err
	}

	return jobs, nil
}
