package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FileSink appends lines to list files, opening and closing the file on
// every write so other tools can edit the lists between runs.
type FileSink struct {
	baseDir string
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewFileSink creates a file sink; relative paths resolve against baseDir
func NewFileSink(baseDir string, logger *zap.Logger) *FileSink {
	return &FileSink{baseDir: baseDir, logger: logger}
}

// Append writes line followed by a newline to the end of path
func (s *FileSink) Append(line, path string) error {
	if path == "" {
		return fmt.Errorf("no list file given")
	}
	line = strings.NewReplacer("\r", "", "\n", "").Replace(line)
	if !filepath.IsAbs(path) && s.baseDir != "" {
		path = filepath.Join(s.baseDir, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open list file: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write list file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close list file: %w", err)
	}

	s.logger.Debug("Appended to list file", zap.String("path", path), zap.String("line", line))
	return nil
}
