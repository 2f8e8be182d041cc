package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/models"
)

type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) Create(ctx context.Context, job *models.Job) error {
	const op = "SQLiteRepository.Create"

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	err := withRetry(ctx, r.db.config, func() error {
		_, err := r.db.statements.create.ExecContext(ctx,
			job.ID,
			string(job.Status),
			job.Workspace,
			job.Model,
			job.Language,
			job.ArchivePath,
			job.Error,
			job.CreatedAt,
			job.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to create job")
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, job *models.Job) error {
	const op = "SQLiteRepository.Update"

	job.UpdatedAt = time.Now().UTC()

	var affected int64
	err := withRetry(ctx, r.db.config, func() error {
		res, err := r.db.statements.update.ExecContext(ctx,
			string(job.Status),
			job.Language,
			job.ArchivePath,
			job.Error,
			job.UpdatedAt,
			job.ID,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to update job")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Job not found")
	}
	return nil
}

func (r *Repository) Transition(ctx context.Context, id string, from, to models.JobStatus) (bool, error) {
	const op = "SQLiteRepository.Transition"

	var affected int64
	err := withRetry(ctx, r.db.config, func() error {
		res, err := r.db.statements.transition.ExecContext(ctx,
			string(to),
			time.Now().UTC(),
			id,
			string(from),
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, errors.Internal(op, err, "Failed to update job status")
	}
	return affected == 1, nil
}

func (r *Repository) Find(ctx context.Context, id string) (*models.Job, error) {
	const op = "SQLiteRepository.Find"

	job, err := scanJob(r.db.statements.get.QueryRowContext(ctx, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(op, nil, "Job not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query job")
	}
	return job, nil
}

func (r *Repository) List(ctx context.Context) ([]*models.Job, error) {
	const op = "SQLiteRepository.List"

	rows, err := r.db.statements.list.QueryContext(ctx)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to list jobs")
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "Failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate jobs")
	}
	return jobs, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	const op = "SQLiteRepository.Delete"

	var affected int64
	err := withRetry(ctx, r.db.config, func() error {
		res, err := r.db.statements.delete.ExecContext(ctx, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to delete job")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Job not found")
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	const op = "SQLiteRepository.DeleteAll"

	var affected int64
	err := withRetry(ctx, r.db.config, func() error {
		res, err := r.db.statements.deleteAll.ExecContext(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.Internal(op, err, "Failed to delete jobs")
	}
	return affected, nil
}

func scanJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}
	var status string
	var model, language, archivePath, jobErr sql.NullString

	err := row.Scan(
		&job.ID,
		&status,
		&job.Workspace,
		&model,
		&language,
		&archivePath,
		&jobErr,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	job.Model = model.String
	job.Language = language.String
	job.ArchivePath = archivePath.String
	job.Error = jobErr.String
	return job, nil
}
