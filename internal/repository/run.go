//go:generate mockgen -source=run.go -destination=mocks/run.go
package repository

import (
	"time"

	"github.com/porter-dev/matrix-agent/internal/models"
	"github.com/porter-dev/matrix-agent/internal/utils"
	"gorm.io/gorm"
)

// RunRepository wraps all actions related to a stored workflow run
type RunRepository interface {
	CreateRun(run *models.Run) (*models.Run, error)
	ReadRun(uid string) (*models.Run, error)
	UpdateRun(run *models.Run) (*models.Run, error)
	ListRuns(filter *utils.ListRunsFilter, opts ...utils.QueryOption) ([]*models.Run, *utils.PaginatedResult, error)
	DeleteRunsFinishedBefore(t time.Time) (int64, error)
}

type runRepository struct {
	db *gorm.DB
}

// NewRunRepository returns pointer to repo along with the db
func NewRunRepository(db *gorm.DB) RunRepository {
	return runRepository{db}
}

// CreateRun stores the run together with its jobs and their steps
func (r runRepository) CreateRun(run *models.Run) (*models.Run, error) {
	if err := r.db.Create(run).Error; err != nil {
		return nil, err
	}

	return run, nil
}

func (r runRepository) ReadRun(uid string) (*models.Run, error) {
	run := &models.Run{}

	if err := r.db.Preload("Jobs", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).Preload("Jobs.Steps").Where("unique_id = ?", uid).First(run).Error; err != nil {
		return nil, err
	}

	return run, nil
}

// UpdateRun only saves the run row, jobs are updated through the job repository
func (r runRepository) UpdateRun(run *models.Run) (*models.Run, error) {
	if err := r.db.Omit("Jobs").Save(run).Error; err != nil {
		return nil, err
	}

	return run, nil
}

func (r runRepository) ListRuns(
	filter *utils.ListRunsFilter,
	opts ...utils.QueryOption,
) ([]*models.Run, *utils.PaginatedResult, error) {
	var runs []*models.Run

	db := r.db.Model(&models.Run{})

	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	if filter.Event != nil {
		db = db.Where("event = ?", *filter.Event)
	}

	if filter.Branch != nil {
		db = db.Where("branch = ?", *filter.Branch)
	}

	var count int64

	if err := db.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, nil, err
	}

	paginatedResult := &utils.PaginatedResult{}

	db = db.Scopes(utils.Paginate(opts, count, paginatedResult))

	if err := db.Preload("Jobs").Find(&runs).Error; err != nil {
		return nil, nil, err
	}

	return runs, paginatedResult, nil
}

// DeleteRunsFinishedBefore removes finished runs older than t along with
// their jobs and steps
func (r runRepository) DeleteRunsFinishedBefore(t time.Time) (int64, error) {
	var runs []*models.Run

	if err := r.db.Where("finished_at IS NOT NULL AND finished_at <= ?", t).Find(&runs).Error; err != nil {
		return 0, err
	}

	var deleted int64

	for _, run := range runs {
		err := r.db.Transaction(func(tx *gorm.DB) error {
			var jobIDs []uint

			if err := tx.Model(&models.Job{}).Where("run_id = ?", run.ID).Pluck("id", &jobIDs).Error; err != nil {
				return err
			}

			if len(jobIDs) > 0 {
				if err := tx.Where("job_id IN ?", jobIDs).Delete(&models.Step{}).Error; err != nil {
					return err
				}

				if err := tx.Where("id IN ?", jobIDs).Delete(&models.Job{}).Error; err != nil {
					return err
				}
			}

			return tx.Delete(run).Error
		})

		if err != nil {
			return deleted, err
		}

		deleted++
	}

	return deleted, nil
}
