package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"fjacquet/statement-ledger/internal/logging"
)

const uploadTimeout = 2 * time.Minute

// GCS stores files as objects in a Cloud Storage bucket. Credentials come from
// Application Default Credentials unless client options say otherwise.
type GCS struct {
	client *storage.Client
	bucket string
	logger logging.Logger
}

func NewGCS(ctx context.Context, bucket string, logger logging.Logger, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("filestore bucket is required for the gcs driver")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, logger: logging.OrDefault(logger)}, nil
}

func (s *GCS) Save(ctx context.Context, p string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(p).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	s.logger.Debug("Uploaded file",
		logging.F(logging.FieldPath, "gs://"+s.bucket+"/"+p),
		logging.F(logging.FieldCount, len(data)))
	return nil
}

func (s *GCS) Open(ctx context.Context, p string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(p).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, p, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

func (s *GCS) Delete(ctx context.Context, p string) error {
	err := s.client.Bucket(s.bucket).Object(p).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object: %w", err)
	}
	return nil
}

// URI returns the gs:// location of p.
func (s *GCS) URI(p string) string {
	return "gs://" + s.bucket + "/" + p
}

func (s *GCS) Close() error {
	return s.client.Close()
}
