package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"paper_recommender/internal/domain"
	"paper_recommender/internal/keywords"
	"paper_recommender/internal/metrics"
)

const (
	reasonTopics      = 3
	matchedTermsShown = 5
)

// Run executes the pipeline over all active journals with configured defaults.
func (s *RecommendService) Run(ctx context.Context) (*domain.RunStats, error) {
	return s.FetchAndRecommend(ctx, domain.JournalSelector{}, 0, -1)
}

// FetchAndRecommend fetches recent articles for the selected journals and
// persists the keyword-matched ones as unread recommendations. daysBack <= 0
// and minScore < 0 fall back to the configured values.
//
// The returned stats are never nil. A failing journal is logged and counted;
// the remaining journals are still processed.
func (s *RecommendService) FetchAndRecommend(
	ctx context.Context,
	sel domain.JournalSelector,
	daysBack int,
	minScore float64,
) (*domain.RunStats, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	startTime := time.Now()
	if daysBack <= 0 {
		daysBack = s.config.DaysBack
	}
	if minScore < 0 {
		minScore = s.config.MinScore
	}

	stats := &domain.RunStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)
	defer func() {
		stats.Duration = time.Since(startTime)
		metrics.PipelineRunDuration.Observe(stats.Duration.Seconds())
	}()

	logger.Info("starting recommendation run",
		"journal_id", sel.JournalID,
		"days_back", daysBack,
		"min_score", minScore,
	)

	// similarity is an explanation signal only; keyword scoring runs either way
	if s.ensureProfile(ctx) == nil {
		logger.Debug("interest profile unavailable, keyword-only mode")
	}

	journals, err := s.resolveJournals(ctx, sel)
	if err != nil {
		return stats, err
	}
	if len(journals) == 0 {
		stats.Message = "no active journals"
		logger.Info("no active journals to process")
		return stats, nil
	}

	for i := range journals {
		journal := &journals[i]
		stats.JournalsProcessed++

		if err := s.processJournal(ctx, logger, journal, daysBack, minScore, stats); err != nil {
			stats.JournalErrors++
			metrics.JournalErrorsTotal.Inc()
			logger.Error("journal processing failed",
				"journal", journal.Name,
				"journal_id", journal.ID,
				"error", err,
			)
		}
	}

	logger.Info("recommendation run completed",
		"fetched", stats.Fetched,
		"excluded", stats.Excluded,
		"matched", stats.Matched,
		"duplicates", stats.Duplicates,
		"recommended", stats.Recommended,
		"published", stats.Published,
		"journals", stats.JournalsProcessed,
		"journal_errors", stats.JournalErrors,
		"duration", time.Since(startTime),
	)

	return stats, nil
}

func (s *RecommendService) resolveJournals(ctx context.Context, sel domain.JournalSelector) ([]domain.Journal, error) {
	if sel.JournalID != 0 {
		journal, err := s.journals.Get(ctx, sel.JournalID)
		if err != nil {
			return nil, fmt.Errorf("get journal: %w", err)
		}
		return []domain.Journal{*journal}, nil
	}

	journals, err := s.journals.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	return journals, nil
}

func (s *RecommendService) processJournal(
	ctx context.Context,
	logger *slog.Logger,
	journal *domain.Journal,
	daysBack int,
	minScore float64,
	stats *domain.RunStats,
) error {
	logger = logger.With("journal", journal.Name, "journal_id", journal.ID)

	query := domain.FetchQuery{
		JournalName: journal.Name,
		DaysBack:    daysBack,
		MaxResults:  s.config.MaxResults,
	}
	if journal.ExternalID != nil {
		query.ExternalID = *journal.ExternalID
	}

	candidates := s.source.FetchRecent(ctx, query)
	stats.Fetched += len(candidates)
	metrics.AddCandidates(metrics.OutcomeFetched, len(candidates))
	logger.Info("fetched candidates", "count", len(candidates))

	for i := range candidates {
		candidate := &candidates[i]
		text := candidate.Text()

		// exclusions are checked before any scoring
		if excluded, terms := s.vocab.ShouldExclude(text); excluded {
			stats.Excluded++
			metrics.AddCandidates(metrics.OutcomeExcluded, 1)
			logger.Debug("candidate excluded", "title", candidate.Title, "terms", terms)
			continue
		}

		match := s.vocab.Match(text, journal.Keywords)
		if match.Count == 0 {
			metrics.AddCandidates(metrics.OutcomeUnmatched, 1)
			continue
		}
		stats.Matched++

		score := domain.KeywordScore(match.Count)
		if score < minScore {
			continue
		}

		if candidate.ExternalID == "" {
			logger.Warn("candidate without identifier skipped", "title", candidate.Title)
			continue
		}

		exists, err := s.recs.Exists(ctx, journal.ID, candidate.ExternalID)
		if err != nil {
			return fmt.Errorf("check existing recommendation: %w", err)
		}
		if exists {
			stats.Duplicates++
			metrics.AddCandidates(metrics.OutcomeDuplicate, 1)
			continue
		}

		rec := s.newRecommendation(journal, candidate, score, match)

		created, err := s.saveRecommendation(ctx, rec)
		if err != nil {
			return err
		}
		if !created {
			stats.Duplicates++
			metrics.AddCandidates(metrics.OutcomeDuplicate, 1)
			continue
		}

		stats.Recommended++
		metrics.AddCandidates(metrics.OutcomeRecommended, 1)

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, rec); err != nil {
				logger.Warn("publish recommendation failed", "recommendation_id", rec.ID, "error", err)
			} else {
				stats.Published++
			}
		}
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.journals.MarkFetched(txCtx, journal.ID, s.now())
	})
	if err != nil {
		return fmt.Errorf("mark journal fetched: %w", err)
	}

	return nil
}

func (s *RecommendService) saveRecommendation(ctx context.Context, rec *domain.Recommendation) (bool, error) {
	var created bool

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.recs.Insert(txCtx, rec)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("insert recommendation: %w", err)
	}

	return created, nil
}

func (s *RecommendService) newRecommendation(
	journal *domain.Journal,
	c *domain.Candidate,
	score float64,
	match keywords.MatchResult,
) *domain.Recommendation {
	return &domain.Recommendation{
		JournalID:       journal.ID,
		JournalName:     journal.Name,
		Title:           c.Title,
		Abstract:        c.Abstract,
		Authors:         c.Authors,
		Year:            c.Year,
		ExternalID:      c.ExternalID,
		Score:           score,
		Category:        domain.CategoryForScore(score),
		Reason:          buildReason(score, match.Terms),
		MatchedKeywords: matchedKeywords(match.Terms),
		Status:          domain.StatusUnread,
		FetchedAt:       s.now(),
	}
}

// buildReason renders e.g. "Matches 2 keywords | Key topics: co2, hydrogen | High relevance (score: 0.70)".
func buildReason(score float64, terms []keywords.Term) string {
	if len(terms) == 0 {
		return fmt.Sprintf("Similarity score: %.2f", score)
	}

	parts := []string{
		fmt.Sprintf("Matches %d keywords", len(terms)),
		"Key topics: " + strings.Join(keyTopics(terms), ", "),
	}
	if score > 0.3 {
		parts = append(parts, fmt.Sprintf("High relevance (score: %.2f)", score))
	}
	return strings.Join(parts, " | ")
}

func keyTopics(terms []keywords.Term) []string {
	if len(terms) > reasonTopics {
		terms = terms[:reasonTopics]
	}

	seen := make(map[string]struct{}, len(terms))
	topics := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t.Keyword]; ok {
			continue
		}
		seen[t.Keyword] = struct{}{}
		topics = append(topics, t.Keyword)
	}
	return topics
}

// matchedKeywords renders up to five terms as "keyword" or "keyword (via form)".
func matchedKeywords(terms []keywords.Term) string {
	if len(terms) > matchedTermsShown {
		terms = terms[:matchedTermsShown]
	}

	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.String()
	}
	return strings.Join(out, ", ")
}
