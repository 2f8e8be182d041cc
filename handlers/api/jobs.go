package api

import (
	"net/http"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/jobs"
	"github.com/nijaru/skryba/models"
)

type JobHandler struct {
	manager *jobs.Manager
}

func NewJobHandler(manager *jobs.Manager) *JobHandler {
	return &JobHandler{manager: manager}
}

// HandleGetJob handles GET /jobs/{id}
func (h *JobHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.manager.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.NewJobResponse(job))
}

// HandleGetArchive handles GET /jobs/{id}/.zip. The first request claims the
// archive; the job is cleaned up after it is served and later requests get
// 410.
func (h *JobHandler) HandleGetArchive(w http.ResponseWriter, r *http.Request) {
	const op = "JobHandler.HandleGetArchive"

	job, err := h.manager.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	switch {
	case job.IsProcessing():
		respondJSON(w, r, http.StatusConflict, "Job is still "+string(job.Status))
		return
	case job.IsFailed():
		respondJSON(w, r, http.StatusConflict, "Job failed: "+job.Error)
		return
	case job.IsDelivered():
		respondJSON(w, r, http.StatusGone, "Archive already downloaded")
		return
	case job.ArchivePath == "":
		respondError(w, r, errors.NotFound(op, nil, "archive not found"))
		return
	}

	claimed, err := h.manager.ClaimDownload(r.Context(), job.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !claimed {
		respondJSON(w, r, http.StatusGone, "Archive already downloaded")
		return
	}
	defer h.manager.ScheduleCleanup(job.ID, job.Workspace)

	if err := serveArchive(w, r, job.ArchivePath); err != nil {
		respondError(w, r, err)
	}
}
