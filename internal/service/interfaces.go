package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"paper_recommender/internal/domain"
)

type JournalStore interface {
	Create(ctx context.Context, journal *domain.Journal) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Journal, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Journal, error)
	SetActive(ctx context.Context, id int64, active bool) error
	UpdateKeywords(ctx context.Context, id int64, keywords []string) error
	MarkFetched(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type RecommendationStore interface {
	Exists(ctx context.Context, journalID int64, externalID string) (bool, error)
	// Insert reports created=false when the dedup key is already taken.
	Insert(ctx context.Context, rec *domain.Recommendation) (bool, error)
	Get(ctx context.Context, id int64) (*domain.Recommendation, error)
	List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error)
	ListPapers(ctx context.Context, filter domain.PaperFilter) ([]domain.Recommendation, int, error)
	// UpdateStatus only moves unread records; others yield ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id int64, status domain.Status, reviewedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteReviewedBefore(ctx context.Context, cutoff time.Time) (int, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
}

type Source interface {
	ID() string
	Name() string
	FetchRecent(ctx context.Context, query domain.FetchQuery) []domain.Candidate
	FetchByIdentifier(ctx context.Context, externalID string) (domain.Candidate, bool)
	LookupJournal(ctx context.Context, issn string) (domain.JournalInfo, bool)
}

type Library interface {
	Corpus(ctx context.Context) ([]domain.CorpusDocument, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, rec *domain.Recommendation) error
	Close() error
}
