package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/kdeps/kxlate/pkg/logging"
)

// Local stores each bucket as a directory under Root on an afero filesystem.
type Local struct {
	Fs     afero.Fs
	Root   string
	Logger *logging.Logger
}

// NewLocal returns a Local store rooted at root.
func NewLocal(fs afero.Fs, root string, logger *logging.Logger) *Local {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Local{Fs: fs, Root: root, Logger: logger}
}

func (l *Local) objectPath(bucket, name string) (string, error) {
	if err := validateLocation(bucket, name); err != nil {
		return "", err
	}
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	if strings.Contains(bucket, "/") || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket name %q", bucket)
	}
	return filepath.Join(l.Root, bucket, filepath.FromSlash(clean)), nil
}

// Fetch implements Store.
func (l *Local) Fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.objectPath(bucket, object)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.Fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, object, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	l.Logger.Debug("object fetched", "bucket", bucket, "object", object, "size", humanize.Bytes(uint64(len(data))))
	return data, nil
}

// Put implements Store. contentType is not persisted on the local backend.
func (l *Local) Put(ctx context.Context, bucket, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.objectPath(bucket, key)
	if err != nil {
		return err
	}

	if err := l.Fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	if err := afero.WriteFile(l.Fs, p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	l.Logger.Debug("object stored", "bucket", bucket, "key", key, "size", humanize.Bytes(uint64(len(data))))
	return nil
}
