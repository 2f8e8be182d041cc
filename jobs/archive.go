package jobs

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/skryba/errors"
)

// Archive zips every file under workspace into workspace/<name>.zip with
// entry names relative to workspace. Existing .zip files are skipped, so an
// earlier archive never ends up inside a later one.
func Archive(workspace, name string) (string, error) {
	const op = "jobs.Archive"

	zipPath := filepath.Join(workspace, name+".zip")
	out, err := os.Create(zipPath)
	if err != nil {
		return "", errors.IOFailure(op, err, "failed to create archive")
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".zip") {
			return nil
		}

		rel, err := filepath.Rel(workspace, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})

	closeErr := zw.Close()
	if err := out.Close(); closeErr == nil {
		closeErr = err
	}

	if walkErr != nil || closeErr != nil {
		os.Remove(zipPath)
		if walkErr == nil {
			walkErr = closeErr
		}
		return "", errors.IOFailure(op, walkErr, "failed to write archive")
	}

	return zipPath, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
