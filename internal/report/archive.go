package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Bundle zips the given files into archivePath and removes the originals,
// leaving the archive as the only artifact.
func Bundle(archivePath string, files []string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, path := range files {
		if err := addFile(w, path); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}

	for _, path := range files {
		os.Remove(path)
	}
	return nil
}

func addFile(w *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	defer src.Close()

	dst, err := w.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	return nil
}
