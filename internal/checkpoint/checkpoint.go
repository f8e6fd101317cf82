// Package checkpoint persists model state between runs: the student's
// weights and the distillation head each land in one JSON file under
// the data directory, written atomically. Resuming a run partway
// through the task stream restores them.
package checkpoint

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File names under the data directory.
const (
	StudentFile   = "taskline_student.json"
	PredictorFile = "taskline_predictor.json"
)

// Saveable is an interface for objects that can be saved.
type Saveable interface {
	Save(w io.Writer) error
}

// Loadable is an interface for objects that can be loaded.
type Loadable interface {
	Load(r io.Reader) error
}

// Store handles persistence of model state.
type Store struct {
	dataDir string
	logger  *slog.Logger
	mu      sync.Mutex
}

// New creates a checkpoint store rooted at the data directory.
func New(dataDir string, logger *slog.Logger) *Store {
	return &Store{
		dataDir: dataDir,
		logger:  logger,
	}
}

// Save writes a model to disk under the given file name.
func (s *Store) Save(name string, model Saveable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure data directory exists
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath := filepath.Join(s.dataDir, name)
	tempPath := filePath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := model.Save(file); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to save model: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.logger.Debug("saved checkpoint", "path", filePath)
	return nil
}

// Load restores a model from disk. A missing or unreadable checkpoint
// is not an error; the model simply keeps its fresh state.
func (s *Store) Load(name string, model Loadable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := filepath.Join(s.dataDir, name)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no checkpoint on disk, starting fresh", "path", filePath)
			return nil
		}
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer file.Close()

	if err := model.Load(file); err != nil {
		s.logger.Warn("failed to load checkpoint, starting fresh", "path", filePath, "error", err)
		return nil
	}

	s.logger.Info("loaded checkpoint", "path", filePath)
	return nil
}

// Exists returns whether a checkpoint file is on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dataDir, name))
	return err == nil
}

// Info describes a checkpoint file on disk.
type Info struct {
	Exists    bool      `json:"exists"`
	Path      string    `json:"path"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// GetInfo returns information about a checkpoint file.
func (s *Store) GetInfo(name string) Info {
	filePath := filepath.Join(s.dataDir, name)
	info := Info{
		Path: filePath,
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return info
	}

	info.Exists = true
	info.Size = stat.Size()
	info.UpdatedAt = stat.ModTime()
	return info
}

// Delete removes a checkpoint file. Deleting a missing file is not an
// error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := filepath.Join(s.dataDir, name)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
