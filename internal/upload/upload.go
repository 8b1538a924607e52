// Package upload validates product images and hands them to a storage
// backend.
package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
)

var (
	ErrUnsupportedType = fmt.Errorf("%w: Please upload only jpg, png or jpeg image.", apperr.ErrInvalidInput)
	ErrTooLarge        = fmt.Errorf("%w: image is too large", apperr.ErrInvalidInput)
)

// declaredTypes maps accepted part content types to file extensions.
var declaredTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// Storage persists an accepted image and returns its public reference.
type Storage interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Ingestor checks uploads before anything is stored.
type Ingestor struct {
	store    Storage
	maxBytes int64
	onReject func()
	now      func() time.Time
}

// NewIngestor creates an Ingestor. onReject, if set, is called for every
// upload refused for its type.
func NewIngestor(store Storage, maxBytes int64, onReject func()) *Ingestor {
	if onReject == nil {
		onReject = func() {}
	}
	return &Ingestor{store: store, maxBytes: maxBytes, onReject: onReject, now: time.Now}
}

// Ingest accepts png and jpeg images only: both the declared content type and
// the sniffed content must agree. It returns the stored reference.
func (in *Ingestor) Ingest(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	declared, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	ext, ok := declaredTypes[strings.ToLower(declared)]
	if err != nil || !ok {
		in.onReject()
		return "", ErrUnsupportedType
	}
	if in.maxBytes > 0 && fh.Size > in.maxBytes {
		return "", ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	sniffed, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if !sniffed.Is("image/png") && !sniffed.Is("image/jpeg") {
		in.onReject()
		return "", ErrUnsupportedType
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	return in.store.Put(ctx, in.name(ext), sniffed.String(), f, fh.Size)
}

// Discard removes a stored image, e.g. after the record referencing it could
// not be written.
func (in *Ingestor) Discard(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	return in.store.Delete(ctx, ref)
}

func (in *Ingestor) name(ext string) string {
	return fmt.Sprintf("%d-%s.%s", in.now().UnixMilli(), uuid.NewString()[:8], ext)
}
