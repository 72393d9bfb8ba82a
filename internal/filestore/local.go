package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/statement-ledger/internal/logging"
	"fjacquet/statement-ledger/internal/models"
)

// Local stores files under a base directory.
type Local struct {
	basePath string
	logger   logging.Logger
}

// NewLocal creates the base directory if needed.
func NewLocal(basePath string, logger logging.Logger) (*Local, error) {
	if basePath == "" {
		return nil, errors.New("filestore directory is required")
	}
	if err := os.MkdirAll(basePath, models.PermissionDirectory); err != nil {
		return nil, fmt.Errorf("create filestore directory: %w", err)
	}
	return &Local{basePath: basePath, logger: logging.OrDefault(logger)}, nil
}

// FullPath maps a store path to its location on disk. Paths that would leave the base
// directory are rejected.
func (s *Local) FullPath(p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(p))
	if p == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path %q", p)
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *Local) Save(ctx context.Context, p string, data []byte) error {
	full, err := s.FullPath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), models.PermissionDirectory); err != nil {
		return fmt.Errorf("create file directory: %w", err)
	}
	if err := os.WriteFile(full, data, models.PermissionDataFile); err != nil {
		_ = os.Remove(full)
		return fmt.Errorf("write file: %w", err)
	}
	s.logger.Debug("Stored file", logging.F(logging.FieldPath, full), logging.F(logging.FieldCount, len(data)))
	return nil
}

func (s *Local) Open(ctx context.Context, p string) ([]byte, error) {
	full, err := s.FullPath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return data, nil
}

// Delete removes the file. A missing file is not an error.
func (s *Local) Delete(ctx context.Context, p string) error {
	full, err := s.FullPath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
