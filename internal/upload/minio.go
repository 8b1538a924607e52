package upload

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
)

// minioAPI is the part of *minio.Client used here, so tests can run
// without a server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// publicRead lets anyone fetch objects of the bucket; product images are
// linked directly from the storefront.
const publicRead = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// Minio stores images in a bucket readable at baseURL/bucket/name.
type Minio struct {
	api     minioAPI
	bucket  string
	baseURL string
}

// NewMinio creates a Minio storage using a real *minio.Client.
func NewMinio(ctx context.Context, client *minio.Client, bucket, baseURL string) (*Minio, error) {
	return NewMinioWithAPI(ctx, client, bucket, baseURL)
}

// NewMinioWithAPI allows injecting a mockable API.
func NewMinioWithAPI(ctx context.Context, api minioAPI, bucket, baseURL string) (*Minio, error) {
	m := &Minio{api: api, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}
	return m, nil
}

func (m *Minio) ensureBucket(ctx context.Context) error {
	exists, err := m.api.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := m.api.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	if err := m.api.SetBucketPolicy(ctx, m.bucket, fmt.Sprintf(publicRead, m.bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

func (m *Minio) Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	_, err := m.api.PutObject(ctx, m.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return m.prefix() + name, nil
}

// Delete removes the object behind ref. Foreign references are ignored.
func (m *Minio) Delete(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, m.prefix()) {
		return nil
	}
	err := m.api.RemoveObject(ctx, m.bucket, path.Base(ref), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (m *Minio) prefix() string {
	return m.baseURL + "/" + m.bucket + "/"
}
