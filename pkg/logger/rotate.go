package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// sizeRotator is an io.WriteCloser that rolls path over to path.1, path.2 ...
// once it grows past maxSize.
type sizeRotator struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

func newSizeRotator(path string, maxSizeMB, maxBackups int) (*sizeRotator, error) {
	if path == "" {
		return nil, errors.New("audit log path cannot be empty when enabled")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	if maxBackups < 0 {
		maxBackups = 0
	} else if maxBackups == 0 {
		maxBackups = 5
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &sizeRotator{
		path:       path,
		maxSize:    int64(maxSizeMB) << 20,
		maxBackups: maxBackups,
	}, nil
}

func (r *sizeRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.open(); err != nil {
		return 0, err
	}
	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.roll(); err != nil {
			return 0, err
		}
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *sizeRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.size = 0
	return err
}

func (r *sizeRotator) open() error {
	if r.file != nil {
		return nil
	}
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

func (r *sizeRotator) roll() error {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}
	r.size = 0

	if r.maxBackups == 0 {
		return os.Remove(r.path)
	}
	_ = os.Remove(r.backupName(r.maxBackups))
	for i := r.maxBackups - 1; i >= 1; i-- {
		if _, err := os.Stat(r.backupName(i)); err == nil {
			_ = os.Rename(r.backupName(i), r.backupName(i+1))
		}
	}
	return os.Rename(r.path, r.backupName(1))
}

func (r *sizeRotator) backupName(n int) string {
	return fmt.Sprintf("%s.%d", r.path, n)
}
