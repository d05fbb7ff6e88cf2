package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"corpsite/internal/contact/models"
	"corpsite/pkg/platform/sentinel"
)

// InMemoryStore keeps submissions in process memory. It backs tests and the
// STORAGE_DRIVER=memory development mode.
type InMemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]models.Submission
}

func New() *InMemoryStore {
	return &InMemoryStore{submissions: make(map[string]models.Submission)}
}

// Save stores a copy of sub and returns its id, assigning one when empty.
func (s *InMemoryStore) Save(_ context.Context, sub *models.Submission) (string, error) {
	if !sub.ConsentGiven {
		return "", fmt.Errorf("save submission without consent: %w", sentinel.ErrInvalidInput)
	}
	record := *sub
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[record.ID] = record
	return record.ID, nil
}

// FindByEmail returns copies of the matching records, oldest first.
func (s *InMemoryStore) FindByEmail(_ context.Context, email string) ([]*models.Submission, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Submission
	for _, sub := range s.submissions {
		if sub.Email == email {
			record := sub
			out = append(out, &record)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := s.submissions[id]; ok {
			delete(s.submissions, id)
			deleted++
		}
	}
	return deleted, nil
}

// PurgeExpired deletes submissions created at or before cutoff.
func (s *InMemoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for id, sub := range s.submissions {
		if !sub.CreatedAt.After(cutoff) {
			delete(s.submissions, id)
			purged++
		}
	}
	return purged, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions), nil
}

func sortByCreated(subs []*models.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
}
