package jobs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/nijaru/skryba/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Sweeper periodically removes what cleanup left behind: finished jobs left
// untouched for longer than the TTL and workspace directories that have no
// job record. Jobs that are still pending or processing are never removed.
type Sweeper struct {
	manager *Manager
	ttl     time.Duration
	cron    *cron.Cron
	group   singleflight.Group
	now     func() time.Time
	logger  *logrus.Logger
}

func NewSweeper(manager *Manager, spec string, ttl time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		manager: manager,
		ttl:     ttl,
		cron:    cron.New(),
		now:     time.Now,
		logger:  logrus.StandardLogger(),
	}

	if _, err := s.cron.AddFunc(spec, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one pass and returns how many jobs and directories it removed.
// Overlapping calls share a single pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	v, _, _ := s.group.Do("sweep", func() (interface{}, error) {
		return s.sweep(ctx), nil
	})
	return v.(int)
}

func (s *Sweeper) sweep(ctx context.Context) int {
	now := s.now()
	removed := 0

	jobs, err := s.manager.List(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to list jobs")
		return 0
	}

	for _, job := range jobs {
		if job.IsStale(s.ttl, now) {
			s.manager.Cleanup(ctx, job.ID, job.Workspace)
			removed++
		}
	}

	entries, err := os.ReadDir(s.manager.config.BaseDir)
	if err != nil {
		s.logger.WithError(err).Error("Sweep failed to read base directory")
		return removed
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) <= s.ttl {
			continue
		}

		if _, err := s.manager.Find(ctx, entry.Name()); !errors.IsNotFound(err) {
			continue
		}

		path := filepath.Join(s.manager.config.BaseDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Failed to remove orphaned workspace")
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Sweep removed leftover jobs")
	}
	return removed
}
