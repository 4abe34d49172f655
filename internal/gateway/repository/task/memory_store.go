package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]Record
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) ClaimPending(_ context.Context, rftFileID string) (Record, error) {
	rftFileID = strings.TrimSpace(rftFileID)
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []Record
	for _, r := range s.byID {
		if r.RFTFileID == rftFileID && r.Status == StatusPending {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return Record{}, ErrNotFound
	}
	sortNewestFirst(matches)
	claimed := matches[0]
	prev := claimed.UpdatedAt
	claimed.Status = StatusProcessing
	claimed.UpdatedAt = s.now()
	if !claimed.UpdatedAt.After(prev) {
		claimed.UpdatedAt = prev.Add(time.Microsecond)
	}
	s.byID[claimed.ID] = claimed
	return claimed, nil
}

func (s *MemoryStore) Create(_ context.Context, r Record) (Record, error) {
	rec, err := prepareNew(r, uuid.NewString(), s.now())
	if err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, p Patch) (Record, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	next, err := p.Apply(cur)
	if err != nil {
		return Record{}, fmt.Errorf("update task %s: %w", id, err)
	}
	next.UpdatedAt = s.now()
	if !next.UpdatedAt.After(cur.UpdatedAt) {
		next.UpdatedAt = cur.UpdatedAt.Add(time.Microsecond)
	}
	s.byID[id] = next
	return next, nil
}

func sortNewestFirst(rs []Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
