package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Disk stores images in a local directory served under baseURL.
type Disk struct {
	dir     string
	baseURL string
}

// NewDisk creates dir if needed. baseURL is the public prefix, such as
// "http://localhost:5000/assets".
func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Disk{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory images are written to.
func (d *Disk) Dir() string { return d.dir }

func (d *Disk) Put(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	f, err := os.OpenFile(filepath.Join(d.dir, filepath.Base(name)), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return d.baseURL + "/" + filepath.Base(name), nil
}

// Delete removes the file behind ref. References not issued by d and files
// already gone are ignored.
func (d *Disk) Delete(_ context.Context, ref string) error {
	if !strings.HasPrefix(ref, d.baseURL+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, path.Base(ref)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}
