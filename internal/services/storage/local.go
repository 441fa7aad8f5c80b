package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Local writes photos under Dir/jobs. The directory is expected to be served
// at BaseURL + "/uploads".
type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) *Local {
	return &Local{Dir: dir, BaseURL: baseURL}
}

func (l *Local) Save(_ context.Context, fh *multipart.FileHeader, prefix string) (string, error) {
	ext, err := checkPhoto(fh)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(l.Dir, "jobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := objectName(prefix, ext)
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := writeFile(filepath.Join(dir, name), src); err != nil {
		return "", err
	}
	return l.BaseURL + "/uploads/jobs/" + name, nil
}

func (l *Local) Delete(_ context.Context, url string) error {
	name, err := nameFromURL(url)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.Dir, "jobs", name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete photo file: %w", err)
	}
	return nil
}

// writeFile copies src to dst and removes dst again if the copy fails, so no
// truncated photo is left behind.
func writeFile(dst string, src io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create photo file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("write photo file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close photo file: %w", err)
	}
	return nil
}
