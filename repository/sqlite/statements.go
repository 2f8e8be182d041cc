package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nijaru/skryba/errors"
)

const (
	createJobQuery = `
        INSERT INTO jobs (
            id, status, workspace, model, language,
            archive_path, error, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	getJobQuery = `
        SELECT id, status, workspace, model, language,
               archive_path, error, created_at, updated_at
        FROM jobs WHERE id = ?
    `

	listJobsQuery = `
        SELECT id, status, workspace, model, language,
               archive_path, error, created_at, updated_at
        FROM jobs ORDER BY created_at
    `

	updateJobQuery = `
        UPDATE jobs SET
            status = ?,
            language = ?,
            archive_path = ?,
            error = ?,
            updated_at = ?
        WHERE id = ?
    `

	transitionJobQuery = `
        UPDATE jobs SET
            status = ?,
            updated_at = ?
        WHERE id = ? AND status = ?
    `

	deleteJobQuery = `
        DELETE FROM jobs WHERE id = ?
    `

	deleteAllJobsQuery = `
        DELETE FROM jobs
    `
)

type PreparedStatements struct {
	create     *sql.Stmt
	get        *sql.Stmt
	list       *sql.Stmt
	update     *sql.Stmt
	transition *sql.Stmt
	delete     *sql.Stmt
	deleteAll  *sql.Stmt
}

func (stmts *PreparedStatements) Prepare(ctx context.Context, db *sql.DB) error {
	const op = "PreparedStatements.Prepare"

	var err error

	if stmts.create, err = db.PrepareContext(ctx, createJobQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare create statement")
	}

	if stmts.get, err = db.PrepareContext(ctx, getJobQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare get statement")
	}

	if stmts.list, err = db.PrepareContext(ctx, listJobsQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare list statement")
	}

	if stmts.update, err = db.PrepareContext(ctx, updateJobQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare update statement")
	}

	if stmts.transition, err = db.PrepareContext(ctx, transitionJobQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare transition statement")
	}

	if stmts.delete, err = db.PrepareContext(ctx, deleteJobQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare delete statement")
	}

	if stmts.deleteAll, err = db.PrepareContext(ctx, deleteAllJobsQuery); err != nil {
		return errors.Internal(op, err, "failed to prepare deleteAll statement")
	}

	return nil
}

func (stmts *PreparedStatements) Close() error {
	var errs []error

	statements := [...]*sql.Stmt{
		stmts.create,
		stmts.get,
		stmts.list,
		stmts.update,
		stmts.transition,
		stmts.delete,
		stmts.deleteAll,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
