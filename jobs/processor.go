package jobs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/nijaru/skryba/models"
	"github.com/nijaru/skryba/scribe"
	"github.com/sirupsen/logrus"
)

type Scriber interface {
	Scribe(ctx context.Context, req scribe.Request) (*scribe.Result, error)
}

// Exporter copies a finished archive somewhere outside the workspace.
type Exporter interface {
	Export(ctx context.Context, key, path string) (string, error)
}

// Input is what a job transcribes: a local file or a URL.
type Input struct {
	Source string
	// Uploaded inputs live in the workspace and are deleted before archiving.
	Uploaded bool
}

// Processor runs a job through the pipeline and archives its workspace.
type Processor struct {
	manager  *Manager
	scriber  Scriber
	exporter Exporter
	logger   *logrus.Logger
}

// NewProcessor wires a processor; exporter may be nil.
func NewProcessor(manager *Manager, scriber Scriber, exporter Exporter) *Processor {
	return &Processor{
		manager:  manager,
		scriber:  scriber,
		exporter: exporter,
		logger:   logrus.StandardLogger(),
	}
}

// Process returns the archive path. On failure the job is marked failed and
// the caller decides what happens to the workspace.
func (p *Processor) Process(ctx context.Context, job *models.Job, input Input) (string, error) {
	logger := p.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"model":  job.Model,
	})

	p.setStatus(ctx, job, models.JobStatusProcessing, "")
	start := time.Now()

	result, err := p.scriber.Scribe(ctx, scribe.Request{
		Input:          input.Source,
		Workspace:      job.Workspace,
		OutputLanguage: job.Language,
		Model:          job.Model,
	})
	if err != nil {
		logger.WithError(err).Error("Scribe pipeline failed")
		p.setStatus(ctx, job, models.JobStatusFailed, err.Error())
		return "", err
	}

	if input.Uploaded {
		p.manager.RemoveInput(input.Source)
	}

	archivePath, err := Archive(job.Workspace, p.manager.ArchiveName(job.ID))
	if err != nil {
		logger.WithError(err).Error("Failed to archive workspace")
		p.setStatus(ctx, job, models.JobStatusFailed, err.Error())
		return "", err
	}

	if p.exporter != nil {
		location, err := p.exporter.Export(ctx, filepath.Base(archivePath), archivePath)
		if err != nil {
			logger.WithError(err).Warn("Archive export failed")
		} else {
			logger.WithField("location", location).Info("Archive exported")
		}
	}

	job.ArchivePath = archivePath
	p.setStatus(ctx, job, models.JobStatusCompleted, "")

	logger.WithFields(logrus.Fields{
		"duration_ms":     time.Since(start).Milliseconds(),
		"empty":           result.Empty,
		"source_language": result.SourceLanguage,
		"output_language": result.OutputLanguage,
	}).Info("Job completed")

	return archivePath, nil
}

func (p *Processor) setStatus(ctx context.Context, job *models.Job, status models.JobStatus, msg string) {
	job.Status = status
	job.Error = msg
	if err := p.manager.Update(context.WithoutCancel(ctx), job); err != nil {
		p.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to update job status")
	}
}
