package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"citypulse/internal/models"
)

var _ RunStore = (*MemoryStore)(nil)

// MemoryStore keeps runs for the life of the process. Runs are stored encoded so
// callers never share slices with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) SaveRun(ctx context.Context, run *models.Run) error {
	b, err := EncodeRun(run)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.runs[run.ID] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	s.mu.RLock()
	b, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeRun(b)
}

func (s *MemoryStore) ListRuns(ctx context.Context, limit, offset int) ([]models.RunOverview, error) {
	s.mu.RLock()
	out := make([]models.RunOverview, 0, len(s.runs))
	for _, b := range s.runs {
		run, err := DecodeRun(b)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		out = append(out, run.Overview())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if offset > 0 {
		if offset >= len(out) {
			return []models.RunOverview{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteRun(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
