package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// LocalProvider is the default Provider: it stores objects as files beneath a root
// directory on the local filesystem. It requires no connection setup and reports a
// replication factor of 1.
type LocalProvider struct {
	*baseProvider

	root string
}

// NewLocalProvider returns a LocalProvider rooted at root. root is created on first
// Connect if it does not already exist.
func NewLocalProvider(root string) *LocalProvider {
	return &LocalProvider{
		baseProvider: newBaseProvider("", 0),
		root:         root,
	}
}

func (l *LocalProvider) Connect(_ context.Context) error {
	l.status = Connecting

	if err := os.MkdirAll(l.root, 0o755); err != nil {
		l.logger.Error("Failed to create local blobstore root", zap.String("root", l.root), zap.Error(err))
		return err
	}

	l.status = Connected
	return nil
}

func (l *LocalProvider) Close() error {
	return nil
}

func (l *LocalProvider) Replication() int {
	return 1
}

func (l *LocalProvider) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.root, path))
}

func (l *LocalProvider) Create(_ context.Context, path string) (io.WriteCloser, error) {
	full := filepath.Join(l.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}

	return os.Create(full)
}

func (l *LocalProvider) List(_ context.Context, prefix string) ([]string, error) {
	base := filepath.Join(l.root, prefix)

	var matches []string
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(l.root, path)
		if relErr != nil {
			return relErr
		}
		matches = append(matches, rel)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return matches, nil
}
