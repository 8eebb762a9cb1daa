package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"paper_recommender/internal/domain"
)

const topJournals = 10

type RecommendationStore struct {
	db *DB
}

func (s *RecommendationStore) Exists(ctx context.Context, journalID int64, externalID string) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	_, ok := s.findByKey(journalID, externalID)
	return ok, nil
}

// Insert stores rec and sets its ID. It reports false when (journal, external id) is taken.
func (s *RecommendationStore) Insert(ctx context.Context, rec *domain.Recommendation) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.journals[rec.JournalID]; !ok {
		return false, domain.ErrJournalNotFound
	}
	if _, ok := s.findByKey(rec.JournalID, rec.ExternalID); ok {
		return false, nil
	}

	s.db.nextRecID++
	rec.ID = s.db.nextRecID
	s.db.recommendations[rec.ID] = copyRecommendation(*rec)

	return true, nil
}

func (s *RecommendationStore) Get(ctx context.Context, id int64) (*domain.Recommendation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	r, ok := s.db.recommendations[id]
	if !ok {
		return nil, domain.ErrRecommendationNotFound
	}
	out := s.view(r)
	return &out, nil
}

// List orders by score descending, then fetched time descending.
func (s *RecommendationStore) List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]domain.Recommendation, 0)
	for _, r := range s.db.recommendations {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		out = append(out, s.view(r))
	}

	sort.Slice(out, func(i, k int) bool {
		if out[i].Score != out[k].Score {
			return out[i].Score > out[k].Score
		}
		if !out[i].FetchedAt.Equal(out[k].FetchedAt) {
			return out[i].FetchedAt.After(out[k].FetchedAt)
		}
		return out[i].ID > out[k].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListPapers returns one newest-first page plus the total matching count.
func (s *RecommendationStore) ListPapers(ctx context.Context, filter domain.PaperFilter) ([]domain.Recommendation, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	keyword := strings.ToLower(filter.Keyword)
	all := make([]domain.Recommendation, 0)
	for _, r := range s.db.recommendations {
		if filter.JournalID != 0 && r.JournalID != filter.JournalID {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(r.MatchedKeywords), keyword) {
			continue
		}
		all = append(all, s.view(r))
	}

	sort.Slice(all, func(i, k int) bool {
		if !all[i].FetchedAt.Equal(all[k].FetchedAt) {
			return all[i].FetchedAt.After(all[k].FetchedAt)
		}
		return all[i].ID > all[k].ID
	})

	total := len(all)
	if filter.Offset >= total {
		return []domain.Recommendation{}, total, nil
	}
	page := all[filter.Offset:]
	if filter.Limit > 0 && len(page) > filter.Limit {
		page = page[:filter.Limit]
	}
	return page, total, nil
}

func (s *RecommendationStore) UpdateStatus(ctx context.Context, id int64, status domain.Status, reviewedAt time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	r, ok := s.db.recommendations[id]
	if !ok {
		return domain.ErrRecommendationNotFound
	}
	if r.Status != domain.StatusUnread {
		return domain.ErrInvalidTransition
	}
	r.Status = status
	r.ReviewedAt = &reviewedAt
	s.db.recommendations[id] = r
	return nil
}

func (s *RecommendationStore) Delete(ctx context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.recommendations[id]; !ok {
		return domain.ErrRecommendationNotFound
	}
	delete(s.db.recommendations, id)
	return nil
}

// DeleteReviewedBefore removes confirmed and dismissed records reviewed before cutoff.
func (s *RecommendationStore) DeleteReviewedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var deleted int
	for id, r := range s.db.recommendations {
		if r.Status == domain.StatusUnread || r.ReviewedAt == nil {
			continue
		}
		if r.ReviewedAt.Before(cutoff) {
			delete(s.db.recommendations, id)
			deleted++
		}
	}
	return deleted, nil
}

// Statistics counts by status; by-category counts cover unread records only.
func (s *RecommendationStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	stats := &domain.Statistics{
		ByStatus:   make(map[domain.Status]int),
		ByCategory: make(map[domain.Category]int),
	}
	perJournal := make(map[int64]int)

	for _, r := range s.db.recommendations {
		stats.Total++
		stats.ByStatus[r.Status]++
		if r.Status == domain.StatusUnread {
			stats.Unread++
			stats.ByCategory[r.Category]++
		}
		perJournal[r.JournalID]++
		if stats.LastFetchedAt == nil || r.FetchedAt.After(*stats.LastFetchedAt) {
			t := r.FetchedAt
			stats.LastFetchedAt = &t
		}
	}

	for id, n := range perJournal {
		stats.ByJournal = append(stats.ByJournal, domain.JournalCount{
			Name:  s.db.journals[id].Name,
			Count: n,
		})
	}
	sort.Slice(stats.ByJournal, func(i, k int) bool {
		if stats.ByJournal[i].Count != stats.ByJournal[k].Count {
			return stats.ByJournal[i].Count > stats.ByJournal[k].Count
		}
		return stats.ByJournal[i].Name < stats.ByJournal[k].Name
	})
	if len(stats.ByJournal) > topJournals {
		stats.ByJournal = stats.ByJournal[:topJournals]
	}

	return stats, nil
}

func (s *RecommendationStore) findByKey(journalID int64, externalID string) (domain.Recommendation, bool) {
	for _, r := range s.db.recommendations {
		if r.JournalID == journalID && r.ExternalID == externalID {
			return r, true
		}
	}
	return domain.Recommendation{}, false
}

// view copies r and fills the journal name.
func (s *RecommendationStore) view(r domain.Recommendation) domain.Recommendation {
	out := copyRecommendation(r)
	if j, ok := s.db.journals[r.JournalID]; ok {
		out.JournalName = j.Name
	}
	return out
}

func copyRecommendation(r domain.Recommendation) domain.Recommendation {
	r.Authors = append([]string(nil), r.Authors...)
	if r.Year != nil {
		y := *r.Year
		r.Year = &y
	}
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		r.ReviewedAt = &t
	}
	return r
}
