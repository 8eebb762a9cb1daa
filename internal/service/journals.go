package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"paper_recommender/internal/domain"
)

// AddJournal registers a target journal. A missing name is resolved from the
// catalog by external identifier.
func (s *RecommendService) AddJournal(ctx context.Context, in domain.NewJournal) (*domain.Journal, error) {
	frequency, err := domain.ParseFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	externalID := strings.TrimSpace(in.ExternalID)

	if name == "" && externalID != "" {
		if info, ok := s.source.LookupJournal(ctx, externalID); ok {
			name = info.Title
			s.logger.Info("resolved journal name", "issn", externalID, "name", name)
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidJournal)
	}

	journal := &domain.Journal{
		Name:      name,
		Keywords:  domain.NormalizeKeywords(in.Keywords),
		Frequency: frequency,
		Active:    true,
		AddedAt:   s.now(),
	}
	if externalID != "" {
		journal.ExternalID = &externalID
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.journals.Create(txCtx, journal)
		if err != nil {
			return err
		}
		journal.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	s.logger.Info("journal added", "journal_id", journal.ID, "journal", journal.Name)
	return journal, nil
}

func (s *RecommendService) ListJournals(ctx context.Context, activeOnly bool) ([]domain.Journal, error) {
	journals, err := s.journals.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	return journals, nil
}

func (s *RecommendService) ToggleJournal(ctx context.Context, id int64, active bool) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.journals.SetActive(txCtx, id, active)
	})
	if err != nil {
		return fmt.Errorf("toggle journal: %w", err)
	}
	return nil
}

// RemoveJournal deletes a journal together with its recommendations.
func (s *RecommendService) RemoveJournal(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.journals.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("remove journal: %w", err)
	}

	s.logger.Info("journal removed", "journal_id", id)
	return nil
}

func (s *RecommendService) UpdateJournalKeywords(ctx context.Context, id int64, keywords []string) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.journals.UpdateKeywords(txCtx, id, domain.NormalizeKeywords(keywords))
	})
	if err != nil {
		return fmt.Errorf("update journal keywords: %w", err)
	}
	return nil
}

// Keywords returns the distinct keywords of all active journals, sorted.
func (s *RecommendService) Keywords(ctx context.Context) ([]string, error) {
	journals, err := s.journals.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, j := range journals {
		for _, kw := range j.Keywords {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Variations lists every surface form the matcher accepts for keyword.
func (s *RecommendService) Variations(keyword string) []string {
	return s.vocab.Variations(keyword)
}

// LookupArticle fetches a single article by external identifier.
func (s *RecommendService) LookupArticle(ctx context.Context, externalID string) (domain.Candidate, bool) {
	return s.source.FetchByIdentifier(ctx, strings.TrimSpace(externalID))
}
