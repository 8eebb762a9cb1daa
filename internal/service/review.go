package service

import (
	"context"
	"fmt"

	"paper_recommender/internal/domain"
	"paper_recommender/internal/metrics"
)

const (
	defaultPaperLimit = 50
	maxPaperLimit     = 200
)

// GetRecommendations returns the review queue ordered by score, then recency.
func (s *RecommendService) GetRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, filter.Status)
	}

	recs, err := s.recs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return recs, nil
}

// ListPapers returns one newest-first page of recommendations.
func (s *RecommendService) ListPapers(ctx context.Context, filter domain.PaperFilter) (*domain.PaperPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultPaperLimit
	}
	if filter.Limit > maxPaperLimit {
		filter.Limit = maxPaperLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	papers, total, err := s.recs.ListPapers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}

	return &domain.PaperPage{
		Papers: papers,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// UpdateStatus moves an unread recommendation to confirmed or dismissed and
// stamps the review time.
func (s *RecommendService) UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Recommendation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	var updated *domain.Recommendation

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rec, err := s.recs.Get(txCtx, id)
		if err != nil {
			return err
		}
		if !rec.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, rec.Status, status)
		}

		reviewedAt := s.now()
		if err := s.recs.UpdateStatus(txCtx, id, status, reviewedAt); err != nil {
			return err
		}

		rec.Status = status
		rec.ReviewedAt = &reviewedAt
		updated = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	metrics.StatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("recommendation reviewed", "recommendation_id", id, "status", status)
	return updated, nil
}

func (s *RecommendService) DeleteRecommendation(ctx context.Context, id int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.recs.Delete(txCtx, id)
	})
	if err != nil {
		return fmt.Errorf("delete recommendation: %w", err)
	}
	return nil
}

func (s *RecommendService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats, err := s.recs.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}
	return stats, nil
}

// ClearOld deletes confirmed and dismissed recommendations reviewed more than
// days ago. days <= 0 uses the configured retention.
func (s *RecommendService) ClearOld(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = s.config.RetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -days)

	var deleted int
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		deleted, err = s.recs.DeleteReviewedBefore(txCtx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear old recommendations: %w", err)
	}

	s.logger.Info("old recommendations cleared", "deleted", deleted, "days", days)
	return deleted, nil
}
