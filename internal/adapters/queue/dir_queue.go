package queue

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikey/tagmda/internal/core"
	"go.uber.org/zap"
)

const messageSuffix = ".msg"

// DirQueue is a hold queue stored as one "<id>.msg" file per message
type DirQueue struct {
	dir    string
	logger *zap.Logger
}

// NewDirQueue opens the hold directory; it must already exist
func NewDirQueue(dir string, logger *zap.Logger) (*DirQueue, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open pending directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pending path %s is not a directory", dir)
	}
	return &DirQueue{dir: dir, logger: logger}, nil
}

// ListIDs returns the ids of every well-formed message file
func (q *DirQueue) ListIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending directory: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), messageSuffix) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), messageSuffix)
		if _, err := core.ParseMessageID(id); err != nil {
			q.logger.Debug("Ignoring stray file in pending directory", zap.String("file", entry.Name()))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Exists reports whether the message file is present
func (q *DirQueue) Exists(ctx context.Context, id string) (bool, error) {
	path, err := q.path(id)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat message %s: %w", id, err)
	}
	return true, nil
}

// Fetch reads the raw message
func (q *DirQueue) Fetch(ctx context.Context, id string) ([]byte, error) {
	path, err := q.path(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrMessageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", id, err)
	}
	return raw, nil
}

// Delete removes the message file
func (q *DirQueue) Delete(ctx context.Context, id string) error {
	path, err := q.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", core.ErrMessageNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	q.logger.Debug("Removed message from pending queue", zap.String("msgid", id))
	return nil
}

// path maps an id to its file; malformed ids never reach the filesystem
func (q *DirQueue) path(id string) (string, error) {
	if _, err := core.ParseMessageID(id); err != nil {
		return "", err
	}
	return filepath.Join(q.dir, id+messageSuffix), nil
}
