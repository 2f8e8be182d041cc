// Package jobs owns the lifecycle of a scribe job: its record, its
// workspace directory, the input file, the archive and the cleanup.
package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/models"
	"github.com/nijaru/skryba/repository"
	"github.com/sirupsen/logrus"
)

type Config struct {
	BaseDir       string
	ArchivePrefix string
}

type Manager struct {
	repo    repository.JobRepository
	config  Config
	logger  *logrus.Logger
	cleanup sync.WaitGroup
}

func NewManager(repo repository.JobRepository, cfg Config) *Manager {
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "skryba"
	}
	return &Manager{
		repo:   repo,
		config: cfg,
		logger: logrus.StandardLogger(),
	}
}

// Allocate persists a new job record and creates its workspace.
func (m *Manager) Allocate(ctx context.Context, model, lang string) (*models.Job, error) {
	const op = "Manager.Allocate"

	id := uuid.New().String()
	job := &models.Job{
		ID:        id,
		Status:    models.JobStatusPending,
		Workspace: m.Workspace(id),
		Model:     model,
		Language:  lang,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(job.Workspace, 0755); err != nil {
		if delErr := m.repo.Delete(ctx, id); delErr != nil {
			m.logger.WithError(delErr).WithField("job_id", id).Warn("Failed to delete job record after workspace error")
		}
		return nil, errors.IOFailure(op, err, "failed to create workspace")
	}

	m.logger.WithFields(logrus.Fields{
		"job_id":    id,
		"workspace": job.Workspace,
	}).Info("Job allocated")

	return job, nil
}

// Workspace returns the workspace path for a job id.
func (m *Manager) Workspace(id string) string {
	return filepath.Join(m.config.BaseDir, id)
}

// ArchiveName returns the archive base name (without extension) for a job.
func (m *Manager) ArchiveName(id string) string {
	return fmt.Sprintf("%s-%s_results", m.config.ArchivePrefix, id)
}

// MaterializeInput writes r into workspace under the base name of filename.
func (m *Manager) MaterializeInput(r io.Reader, filename, workspace string) (string, error) {
	const op = "Manager.MaterializeInput"

	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", errors.InvalidInput(op, nil, "invalid upload filename")
	}

	path := filepath.Join(workspace, name)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.IOFailure(op, err, "failed to create input file")
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", errors.IOFailure(op, err, "failed to write input file")
	}
	if err := f.Close(); err != nil {
		return "", errors.IOFailure(op, err, "failed to close input file")
	}

	return path, nil
}

// RemoveInput deletes the uploaded input once the pipeline is done with it.
// Failures are logged only.
func (m *Manager) RemoveInput(path string) {
	if err := os.Remove(path); err != nil {
		m.logger.WithError(err).WithField("path", path).Warn("Could not delete uploaded file")
	}
}

// Update persists job state changes.
func (m *Manager) Update(ctx context.Context, job *models.Job) error {
	return m.repo.Update(ctx, job)
}

// ClaimDownload marks a completed job as delivered. Only the first caller
// for a job gets true.
func (m *Manager) ClaimDownload(ctx context.Context, id string) (bool, error) {
	return m.repo.Transition(ctx, id, models.JobStatusCompleted, models.JobStatusDelivered)
}

func (m *Manager) Find(ctx context.Context, id string) (*models.Job, error) {
	return m.repo.Find(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]*models.Job, error) {
	return m.repo.List(ctx)
}

// Cleanup removes the workspace and the job record. It never fails: every
// error is logged and dropped.
func (m *Manager) Cleanup(ctx context.Context, jobID, workspace string) {
	const op = "Manager.Cleanup"
	logger := m.logger.WithFields(logrus.Fields{
		"job_id":    jobID,
		"workspace": workspace,
	})

	if err := os.RemoveAll(workspace); err != nil {
		logger.WithError(errors.CleanupFailure(op, err, "failed to remove workspace")).Warn("Cleanup failed")
	}

	if err := m.repo.Delete(ctx, jobID); err != nil {
		logger.WithError(errors.CleanupFailure(op, err, "failed to delete job record")).Warn("Cleanup failed")
		return
	}

	logger.Debug("Job cleaned up")
}

// ScheduleCleanup runs Cleanup in the background, detached from any request
// context. Call it only once the response has been handed off.
func (m *Manager) ScheduleCleanup(jobID, workspace string) {
	m.cleanup.Add(1)
	go func() {
		defer m.cleanup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		m.Cleanup(ctx, jobID, workspace)
	}()
}

// Wait blocks until every scheduled cleanup has finished.
func (m *Manager) Wait() {
	m.cleanup.Wait()
}

// PurgeAll deletes every job record and everything under the base
// directory, then recreates the base directory.
func (m *Manager) PurgeAll(ctx context.Context) error {
	const op = "Manager.PurgeAll"

	n, err := m.repo.DeleteAll(ctx)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(m.config.BaseDir)
	if err != nil && !os.IsNotExist(err) {
		return errors.IOFailure(op, err, "failed to read base directory")
	}
	for _, entry := range entries {
		path := filepath.Join(m.config.BaseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			m.logger.WithError(err).WithField("path", path).Warn("Failed to remove stale workspace")
		}
	}

	if err := os.MkdirAll(m.config.BaseDir, 0755); err != nil {
		return errors.IOFailure(op, err, "failed to create base directory")
	}

	m.logger.WithFields(logrus.Fields{
		"records":    n,
		"workspaces": len(entries),
	}).Info("Purged previous jobs")

	return nil
}
