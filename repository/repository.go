package repository

import (
	"context"

	"github.com/nijaru/skryba/models"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	// Transition moves a job from one status to another and reports whether
	// the job was in the from status.
	Transition(ctx context.Context, id string, from, to models.JobStatus) (bool, error)
	Find(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}
