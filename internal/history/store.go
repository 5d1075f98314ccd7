package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/acheong08/credscore/pkg/models"
)

// DefaultCapacity is how many entries the store keeps
const DefaultCapacity = 10

// Store keeps the most recent analysis results, newest first, in a Slot.
// Unreadable or malformed persisted data reads as an empty history.
type Store struct {
	slot     Slot
	capacity int
	logger   *zap.Logger
	mu       sync.Mutex // serializes Append's read-modify-write
}

// Option configures a Store
type Option func(*Store)

// WithCapacity overrides DefaultCapacity
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger used to report swallowed corruption
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store over slot
func NewStore(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot:     slot,
		capacity: DefaultCapacity,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds entry as the newest item, evicting the oldest entries beyond
// capacity. Corrupted state is replaced. A slot that cannot be read is left
// untouched and the load error is returned, as is a failed save.
func (s *Store) Append(ctx context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	updated := make([]models.HistoryEntry, 0, min(len(current)+1, s.capacity))
	updated = append(updated, entry)
	for _, e := range current {
		if len(updated) == s.capacity {
			break
		}
		updated = append(updated, e)
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.slot.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// List returns the stored entries, newest first. It never fails: missing or
// corrupted state yields an empty slice.
func (s *Store) List(ctx context.Context) []models.HistoryEntry {
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) []models.HistoryEntry {
	entries, err := s.read(ctx)
	if err != nil {
		s.logger.Warn("History unreadable, treating as empty", zap.Error(err))
		return []models.HistoryEntry{}
	}
	return entries
}

// read decodes the slot. Only a failed Load is an error; a missing or
// malformed value reads as empty.
func (s *Store) read(ctx context.Context) ([]models.HistoryEntry, error) {
	data, err := s.slot.Load(ctx)
	if errors.Is(err, ErrSlotEmpty) {
		return []models.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("History corrupted, treating as empty", zap.Error(err))
		return []models.HistoryEntry{}, nil
	}
	if entries == nil {
		return []models.HistoryEntry{}, nil
	}
	if len(entries) > s.capacity {
		entries = entries[:s.capacity]
	}
	return entries, nil
}
