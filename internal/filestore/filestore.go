// Package filestore keeps uploaded statement files until the parsing service has read them.
package filestore

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/statement-ledger/internal/logging"
)

// ErrNotExist is returned when a stored file cannot be found.
var ErrNotExist = errors.New("file does not exist")

// FileStore saves and retrieves opaque files by slash-separated path.
type FileStore interface {
	Save(ctx context.Context, path string, data []byte) error
	Open(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

const (
	DriverLocal = "local"
	DriverGCS   = "gcs"
)

// Options selects and configures a backend.
type Options struct {
	Driver    string
	Directory string
	Bucket    string
}

// New returns the backend named by opts.Driver.
func New(ctx context.Context, opts Options, logger logging.Logger) (FileStore, error) {
	switch opts.Driver {
	case "", DriverLocal:
		return NewLocal(opts.Directory, logger)
	case DriverGCS:
		return NewGCS(ctx, opts.Bucket, logger)
	default:
		return nil, fmt.Errorf("unknown filestore driver %q", opts.Driver)
	}
}
