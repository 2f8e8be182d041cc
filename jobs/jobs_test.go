package jobs

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/models"
	"github.com/nijaru/skryba/repository/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *sqlite.Repository) {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(context.Background(), filepath.Join(dir, "jobs.db"), sqlite.DefaultDBConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewRepository(db)
	m := NewManager(repo, Config{BaseDir: filepath.Join(dir, "files")})
	require.NoError(t, os.MkdirAll(m.config.BaseDir, 0755))
	return m, repo
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := map[string]string{}
	for _, f := range r.File {
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(data)
	}
	return out
}

func TestArchive(t *testing.T) {
	workspace := t.TempDir()
	files := map[string]string{
		"a.txt":   "alpha",
		"b/c.txt": strings.Repeat("gamma ", 100),
	}
	writeFiles(t, workspace, files)

	path, err := Archive(workspace, "results")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workspace, "results.zip"), path)
	assert.Equal(t, files, readZip(t, path))
}

func TestArchiveTwiceSkipsPreviousArchive(t *testing.T) {
	workspace := t.TempDir()
	writeFiles(t, workspace, map[string]string{"a.txt": "alpha", "b/c.txt": "gamma"})

	_, err := Archive(workspace, "first")
	require.NoError(t, err)
	second, err := Archive(workspace, "second")
	require.NoError(t, err)

	entries := readZip(t, second)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, names)
}

func TestArchiveMissingWorkspace(t *testing.T) {
	_, err := Archive(filepath.Join(t.TempDir(), "gone"), "x")
	require.Error(t, err)
	assert.Equal(t, errors.KindIOFailure, errors.KindOf(err))
}

func TestAllocate(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	job, err := m.Allocate(ctx, "large-v3", "pl")
	require.NoError(t, err)
	assert.DirExists(t, job.Workspace)
	assert.Equal(t, filepath.Join(m.config.BaseDir, job.ID), job.Workspace)
	assert.Equal(t, models.JobStatusPending, job.Status)

	stored, err := repo.Find(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "large-v3", stored.Model)
	assert.Equal(t, "pl", stored.Language)

	other, err := m.Allocate(ctx, "tiny", "")
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, other.ID)
}

func TestArchiveName(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, "skryba-42_results", m.ArchiveName("42"))
}

func TestMaterializeInput(t *testing.T) {
	m, _ := newTestManager(t)
	workspace := t.TempDir()

	path, err := m.MaterializeInput(strings.NewReader("media bytes"), "talk.mp4", workspace)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workspace, "talk.mp4"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "media bytes", string(data))

	path, err = m.MaterializeInput(strings.NewReader("x"), "../../etc/passwd", workspace)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workspace, "passwd"), path)

	for _, bad := range []string{"", ".", "..", "/"} {
		_, err := m.MaterializeInput(strings.NewReader("x"), bad, workspace)
		assert.True(t, errors.IsInvalidInput(err), "filename %q", bad)
	}

	_, err = m.MaterializeInput(strings.NewReader("x"), "a.wav", filepath.Join(workspace, "missing"))
	assert.Equal(t, errors.KindIOFailure, errors.KindOf(err))
}

func TestCleanup(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	job, err := m.Allocate(ctx, "tiny", "")
	require.NoError(t, err)
	writeFiles(t, job.Workspace, map[string]string{"summary_en.md": "notes"})

	m.Cleanup(ctx, job.ID, job.Workspace)

	assert.NoDirExists(t, job.Workspace)
	_, err = repo.Find(ctx, job.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestCleanupFailureIsSwallowed(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	m, repo := newTestManager(t)
	ctx := context.Background()

	job, err := m.Allocate(ctx, "tiny", "")
	require.NoError(t, err)

	// both resources already gone
	require.NoError(t, os.RemoveAll(job.Workspace))
	require.NoError(t, repo.Delete(ctx, job.ID))

	assert.NotPanics(t, func() { m.Cleanup(ctx, job.ID, job.Workspace) })

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Cleanup failed" {
			warned = true
			assert.Equal(t, errors.KindCleanupFailure, errors.KindOf(e.Data[logrus.ErrorKey].(error)))
		}
	}
	assert.True(t, warned)
}

func TestScheduleCleanup(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	var allocated []*models.Job
	for i := 0; i < 5; i++ {
		job, err := m.Allocate(ctx, "tiny", "")
		require.NoError(t, err)
		allocated = append(allocated, job)
	}
	for _, job := range allocated {
		m.ScheduleCleanup(job.ID, job.Workspace)
	}
	m.Wait()

	for _, job := range allocated {
		assert.NoDirExists(t, job.Workspace)
		_, err := repo.Find(ctx, job.ID)
		assert.True(t, errors.IsNotFound(err))
	}
}

func TestPurgeAll(t *testing.T) {
	m, repo := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Allocate(ctx, "tiny", "")
		require.NoError(t, err)
	}
	writeFiles(t, m.config.BaseDir, map[string]string{"orphan/out.srt": "x", "stray.txt": "y"})

	require.NoError(t, m.PurgeAll(ctx))

	entries, err := os.ReadDir(m.config.BaseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	jobs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestPurgeAllCreatesBaseDir(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, os.RemoveAll(m.config.BaseDir))

	require.NoError(t, m.PurgeAll(context.Background()))
	assert.DirExists(t, m.config.BaseDir)
}

func ExampleManager_ArchiveName() {
	m := NewManager(nil, Config{BaseDir: "/skrybafiles"})
	fmt.Println(m.ArchiveName("1234"))
	fmt.Println(m.Workspace("1234"))
	// Output:
	// skryba-1234_results
	// /skrybafiles/1234
}
