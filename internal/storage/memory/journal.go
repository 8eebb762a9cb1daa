package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"paper_recommender/internal/domain"
)

type JournalStore struct {
	db *DB
}

func (s *JournalStore) Create(ctx context.Context, journal *domain.Journal) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, j := range s.db.journals {
		if strings.EqualFold(j.Name, journal.Name) {
			return 0, domain.ErrDuplicateJournal
		}
	}

	s.db.nextJournalID++
	stored := copyJournal(*journal)
	stored.ID = s.db.nextJournalID
	s.db.journals[stored.ID] = stored

	return stored.ID, nil
}

func (s *JournalStore) Get(ctx context.Context, id int64) (*domain.Journal, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	j, ok := s.db.journals[id]
	if !ok {
		return nil, domain.ErrJournalNotFound
	}
	out := copyJournal(j)
	return &out, nil
}

// List returns journals ordered by name.
func (s *JournalStore) List(ctx context.Context, activeOnly bool) ([]domain.Journal, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]domain.Journal, 0, len(s.db.journals))
	for _, j := range s.db.journals {
		if activeOnly && !j.Active {
			continue
		}
		out = append(out, copyJournal(j))
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Name != out[k].Name {
			return out[i].Name < out[k].Name
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

func (s *JournalStore) SetActive(ctx context.Context, id int64, active bool) error {
	return s.update(id, func(j *domain.Journal) { j.Active = active })
}

func (s *JournalStore) UpdateKeywords(ctx context.Context, id int64, keywords []string) error {
	kw := append([]string(nil), keywords...)
	return s.update(id, func(j *domain.Journal) { j.Keywords = kw })
}

func (s *JournalStore) MarkFetched(ctx context.Context, id int64, at time.Time) error {
	return s.update(id, func(j *domain.Journal) { j.LastFetched = &at })
}

// Delete removes the journal and its recommendations.
func (s *JournalStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.journals[id]; !ok {
		return domain.ErrJournalNotFound
	}
	delete(s.db.journals, id)

	for recID, r := range s.db.recommendations {
		if r.JournalID == id {
			delete(s.db.recommendations, recID)
		}
	}
	return nil
}

func (s *JournalStore) update(id int64, fn func(j *domain.Journal)) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	j, ok := s.db.journals[id]
	if !ok {
		return domain.ErrJournalNotFound
	}
	fn(&j)
	s.db.journals[id] = j
	return nil
}

func copyJournal(j domain.Journal) domain.Journal {
	j.Keywords = append([]string(nil), j.Keywords...)
	if j.ExternalID != nil {
		id := *j.ExternalID
		j.ExternalID = &id
	}
	if j.LastFetched != nil {
		t := *j.LastFetched
		j.LastFetched = &t
	}
	return j
}
