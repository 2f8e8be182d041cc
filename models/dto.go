package models

// ScribeURLRequest is the JSON body of the URL scribe routes.
type ScribeURLRequest struct {
	URL      string `json:"url"`
	Language string `json:"lang,omitempty"`
}

// JobCreatedResponse is returned by the upload route that keeps the archive
// for a later download.
type JobCreatedResponse struct {
	ID string `json:"id"`
}

// JobResponse represents the job status API response
type JobResponse struct {
	ID       string    `json:"id"`
	Status   JobStatus `json:"status"`
	Model    string    `json:"model,omitempty"`
	Language string    `json:"language,omitempty"`
	Error    string    `json:"error,omitempty"`
	Download string    `json:"download,omitempty"`
}

// NewJobResponse creates a response from a job model
func NewJobResponse(j *Job) *JobResponse {
	resp := &JobResponse{
		ID:       j.ID,
		Status:   j.Status,
		Model:    j.Model,
		Language: j.Language,
		Error:    j.Error,
	}
	if j.IsCompleted() {
		resp.Download = "/jobs/" + j.ID + "/.zip"
	}
	return resp
}
