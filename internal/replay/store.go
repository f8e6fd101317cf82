package replay

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// poolData represents the persisted pool structure.
type poolData struct {
	Version   int          `json:"version"`
	UpdatedAt time.Time    `json:"updated_at"`
	Seed      int64        `json:"seed"`
	Tasks     []*TaskEntry `json:"tasks"`
}

// TaskEntry represents one task's remembered draw, in draw order.
type TaskEntry struct {
	Task    int   `json:"task"`
	Indices []int `json:"indices"`
}

const (
	currentVersion = 1
	poolFileName   = "taskline_replay.json"
)

// Store handles persistence of the replay pool across runs.
type Store struct {
	dataDir       string
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.RWMutex
	data   *poolData
	dirty  bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStore creates a new Store instance.
func NewStore(dataDir string, flushInterval time.Duration, logger *slog.Logger) *Store {
	return &Store{
		dataDir:       dataDir,
		flushInterval: flushInterval,
		logger:        logger,
		data:          newEmptyPoolData(),
		done:          make(chan struct{}),
	}
}

func newEmptyPoolData() *poolData {
	return &poolData{
		Version:   currentVersion,
		UpdatedAt: time.Now(),
	}
}

// Load loads pool state from disk. A missing file starts fresh.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := filepath.Join(s.dataDir, poolFileName)

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no existing replay pool file, starting fresh", "path", filePath)
			s.data = newEmptyPoolData()
			return nil
		}
		return err
	}
	defer file.Close()

	var data poolData
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		s.logger.Warn("failed to decode replay pool file, starting fresh", "error", err)
		s.data = newEmptyPoolData()
		return nil
	}

	if data.Version > currentVersion {
		s.logger.Warn("replay pool file version is newer than supported, starting fresh",
			"file_version", data.Version,
			"supported_version", currentVersion,
		)
		s.data = newEmptyPoolData()
		return nil
	}

	s.data = &data
	s.logger.Info("loaded replay pool from disk",
		"path", filePath,
		"tasks", len(data.Tasks),
	)

	return nil
}

// Save saves pool state to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	filePath := filepath.Join(s.dataDir, poolFileName)
	tempPath := filePath + ".tmp"

	s.data.UpdatedAt = time.Now()

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	// Atomic rename
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return err
	}

	s.dirty = false
	s.logger.Debug("saved replay pool to disk", "path", filePath)

	return nil
}

// Start starts the periodic flush goroutine.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.flushLoop(ctx)
}

// Stop stops the periodic flush and saves final state.
func (s *Store) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	return s.Save()
}

func (s *Store) flushLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			dirty := s.dirty
			s.mu.RUnlock()

			if dirty {
				if err := s.Save(); err != nil {
					s.logger.Error("failed to save replay pool", "error", err)
				}
			}
		}
	}
}

// Sync replaces the persisted entries with the pool's current draws.
func (s *Store) Sync(p *Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := p.Tasks()
	entries := make([]*TaskEntry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, &TaskEntry{Task: t, Indices: p.Draw(t)})
	}
	s.data.Tasks = entries
	s.dirty = true
}

// Restore copies the persisted entries into a fresh pool.
func (s *Store) Restore() *Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool := NewPool()
	for _, e := range s.data.Tasks {
		pool.Update(e.Task, e.Indices)
	}
	return pool
}

// SetSeed records the run seed the stored draws were made with.
func (s *Store) SetSeed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Seed != seed {
		s.data.Seed = seed
		s.dirty = true
	}
}

// Seed returns the recorded run seed.
func (s *Store) Seed() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Seed
}

// TaskCount returns the number of persisted task draws.
func (s *Store) TaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Tasks)
}

// IsDirty returns whether state has unsaved changes.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Entries returns a copy of the persisted draws keyed by task.
func (s *Store) Entries() map[int][]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int][]int, len(s.data.Tasks))
	for _, e := range s.data.Tasks {
		idxs := make([]int, len(e.Indices))
		copy(idxs, e.Indices)
		out[e.Task] = idxs
	}
	return out
}
