package api

import (
	"context"
	"net/http"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/jobs"
	"github.com/nijaru/skryba/middleware"
	"github.com/nijaru/skryba/models"
	"github.com/nijaru/skryba/validation"
	"github.com/sirupsen/logrus"
)

const maxMemory = 32 << 20

// JobRunner runs a job to completion and returns its archive path.
type JobRunner interface {
	Process(ctx context.Context, job *models.Job, input jobs.Input) (string, error)
}

type ScribeHandler struct {
	manager       *jobs.Manager
	runner        JobRunner
	validator     *validation.Validator
	maxUploadSize int64
}

func NewScribeHandler(manager *jobs.Manager, runner JobRunner, validator *validation.Validator, maxUploadSize int64) *ScribeHandler {
	return &ScribeHandler{
		manager:       manager,
		runner:        runner,
		validator:     validator,
		maxUploadSize: maxUploadSize,
	}
}

// HandleScribeFile handles POST /scribe-file/{model}. The job runs inside
// the request and the body is just {"id": ...}; the archive stays in the
// workspace until GET /jobs/{id}/.zip fetches it or the sweeper expires it.
// Errors still use the response envelope.
func (h *ScribeHandler) HandleScribeFile(w http.ResponseWriter, r *http.Request) {
	job, input, err := h.acceptUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if _, err := h.runner.Process(ctx, job, input); err != nil {
		h.manager.Cleanup(ctx, job.ID, job.Workspace)
		respondError(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).WithField("job_id", job.ID).Info("Job completed, archive kept for download")
	writeJSON(w, r, http.StatusOK, models.JobCreatedResponse{ID: job.ID})
}

// HandleScribeFileArchive handles POST /scribe-file/{model}/.zip.
func (h *ScribeHandler) HandleScribeFileArchive(w http.ResponseWriter, r *http.Request) {
	job, input, err := h.acceptUpload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.runAndServe(w, r, job, input)
}

// HandleScribeURLArchive handles POST /scribe-url/{model}/.zip.
func (h *ScribeHandler) HandleScribeURLArchive(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	if err := h.validator.ValidateModel(model); err != nil {
		respondError(w, r, err)
		return
	}

	var req models.ScribeURLRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.validator.ValidateURL(req.URL); err != nil {
		respondError(w, r, err)
		return
	}

	lang := req.Language
	if lang == "" {
		lang = r.URL.Query().Get("lang")
	}

	job, err := h.manager.Allocate(r.Context(), model, lang)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.runAndServe(w, r, job, jobs.Input{Source: req.URL})
}

// acceptUpload validates the request, allocates a job and writes the
// uploaded file into its workspace.
func (h *ScribeHandler) acceptUpload(w http.ResponseWriter, r *http.Request) (*models.Job, jobs.Input, error) {
	const op = "ScribeHandler.acceptUpload"

	model := r.PathValue("model")
	if err := h.validator.ValidateModel(model); err != nil {
		return nil, jobs.Input{}, err
	}

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, jobs.Input{}, errors.InvalidInput(op, err, "Failed to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, jobs.Input{}, errors.InvalidInput(op, err, "file is required")
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header.Filename, header.Size); err != nil {
		return nil, jobs.Input{}, err
	}

	job, err := h.manager.Allocate(r.Context(), model, r.FormValue("lang"))
	if err != nil {
		return nil, jobs.Input{}, err
	}

	path, err := h.manager.MaterializeInput(file, header.Filename, job.Workspace)
	if err != nil {
		h.manager.Cleanup(context.WithoutCancel(r.Context()), job.ID, job.Workspace)
		return nil, jobs.Input{}, err
	}

	return job, jobs.Input{Source: path, Uploaded: true}, nil
}

// runAndServe processes the job inside the request and streams the archive.
// A client disconnect does not stop the pipeline. The job is cleaned up
// once the response is written, or right away when it fails.
func (h *ScribeHandler) runAndServe(w http.ResponseWriter, r *http.Request, job *models.Job, input jobs.Input) {
	ctx := context.WithoutCancel(r.Context())
	archive, err := h.runner.Process(ctx, job, input)
	if err != nil {
		h.manager.Cleanup(ctx, job.ID, job.Workspace)
		respondError(w, r, err)
		return
	}

	if err := serveArchive(w, r, archive); err != nil {
		h.manager.Cleanup(ctx, job.ID, job.Workspace)
		respondError(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"job_id": job.ID,
		"model":  job.Model,
	}).Info("Archive delivered")
	h.manager.ScheduleCleanup(job.ID, job.Workspace)
}
