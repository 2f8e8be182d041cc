package models

import (
	"testing"
	"time"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		status     JobStatus
		processing bool
		completed  bool
		failed     bool
	}{
		{JobStatusPending, true, false, false},
		{JobStatusProcessing, true, false, false},
		{JobStatusCompleted, false, true, false},
		{JobStatusFailed, false, false, true},
		{JobStatusDelivered, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			j := &Job{Status: tt.status}
			if got := j.IsProcessing(); got != tt.processing {
				t.Errorf("IsProcessing() = %v, want %v", got, tt.processing)
			}
			if got := j.IsCompleted(); got != tt.completed {
				t.Errorf("IsCompleted() = %v, want %v", got, tt.completed)
			}
			if got := j.IsFailed(); got != tt.failed {
				t.Errorf("IsFailed() = %v, want %v", got, tt.failed)
			}
		})
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	j := &Job{Status: JobStatusCompleted, CreatedAt: now.Add(-2 * time.Hour)}

	if !j.IsStale(time.Hour, now) {
		t.Error("expected a two hour old job to be stale with a one hour ttl")
	}
	if j.IsStale(3*time.Hour, now) {
		t.Error("expected a two hour old job to be fresh with a three hour ttl")
	}

	j.UpdatedAt = now.Add(-30 * time.Minute)
	if j.IsStale(time.Hour, now) {
		t.Error("expected staleness to be measured from the last update")
	}
}

func TestIsStaleSkipsRunningJobs(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-48 * time.Hour)

	for _, status := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		j := &Job{Status: status, CreatedAt: old, UpdatedAt: old}
		if j.IsStale(time.Hour, now) {
			t.Errorf("%s job reported stale", status)
		}
	}
	for _, status := range []JobStatus{JobStatusFailed, JobStatusDelivered} {
		j := &Job{Status: status, CreatedAt: old, UpdatedAt: old}
		if !j.IsStale(time.Hour, now) {
			t.Errorf("%s job not reported stale", status)
		}
	}
}

func TestNewJobResponse(t *testing.T) {
	j := &Job{ID: "abc", Status: JobStatusProcessing, Model: "tiny"}
	if resp := NewJobResponse(j); resp.Download != "" {
		t.Errorf("Download = %q for a running job", resp.Download)
	}

	j.Status = JobStatusCompleted
	if resp := NewJobResponse(j); resp.Download != "/jobs/abc/.zip" {
		t.Errorf("Download = %q, want /jobs/abc/.zip", resp.Download)
	}
}
