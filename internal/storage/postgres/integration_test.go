//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"paper_recommender/internal/domain"
	"paper_recommender/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_journals.up.sql"),
			filepath.Join(migrationsPath, "002_create_recommendations.up.sql"),
			filepath.Join(migrationsPath, "003_create_library.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM recommendations")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM journals")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM annotations")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM document_tags")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM tags")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM documents")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) createJournal(name string, keywords ...string) int64 {
	id, err := NewJournalStore(s.db).Create(s.ctx, &domain.Journal{
		Name:       name,
		ExternalID: utils.Ptr("1234-5678"),
		Keywords:   keywords,
		Frequency:  domain.FrequencyWeekly,
		Active:     true,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) insertRec(journalID int64, externalID string, score float64, keywords string, fetchedAt time.Time) int64 {
	rec := &domain.Recommendation{
		JournalID:       journalID,
		Title:           "Paper " + externalID,
		Authors:         []string{"Ada Lovelace"},
		Year:            utils.Ptr(2024),
		ExternalID:      externalID,
		Score:           score,
		Category:        domain.CategoryForScore(score),
		MatchedKeywords: keywords,
		Status:          domain.StatusUnread,
		FetchedAt:       fetchedAt,
	}
	created, err := NewRecommendationStore(s.db).Insert(s.ctx, rec)
	s.Require().NoError(err)
	s.Require().True(created)
	return rec.ID
}

func (s *PostgresIntegrationSuite) TestJournalStore_CreateAndGet() {
	store := NewJournalStore(s.db)
	id := s.createJournal("Energy & Fuels", "hydrogen", "co2")

	j, err := store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Energy & Fuels", j.Name)
	s.Equal([]string{"hydrogen", "co2"}, j.Keywords)
	s.Require().NotNil(j.ExternalID)
	s.Equal("1234-5678", *j.ExternalID)
	s.True(j.Active)
	s.Nil(j.LastFetched)
	s.False(j.AddedAt.IsZero())
}

func (s *PostgresIntegrationSuite) TestJournalStore_DuplicateNameCaseInsensitive() {
	s.createJournal("Fuel")

	_, err := NewJournalStore(s.db).Create(s.ctx, &domain.Journal{Name: "FUEL", Frequency: domain.FrequencyDaily})
	s.ErrorIs(err, domain.ErrDuplicateJournal)
}

func (s *PostgresIntegrationSuite) TestJournalStore_ListAndUpdates() {
	store := NewJournalStore(s.db)
	bID := s.createJournal("B Journal")
	aID := s.createJournal("A Journal")

	s.Require().NoError(store.SetActive(s.ctx, bID, false))

	active, err := store.List(s.ctx, true)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(aID, active[0].ID)

	all, err := store.List(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("A Journal", all[0].Name)

	now := time.Now().Truncate(time.Microsecond)
	s.Require().NoError(store.MarkFetched(s.ctx, aID, now))
	s.Require().NoError(store.UpdateKeywords(s.ctx, aID, nil))

	j, err := store.Get(s.ctx, aID)
	s.Require().NoError(err)
	s.Require().NotNil(j.LastFetched)
	s.WithinDuration(now, *j.LastFetched, time.Millisecond)
	s.Empty(j.Keywords)

	s.ErrorIs(store.SetActive(s.ctx, 999999, true), domain.ErrJournalNotFound)
	_, err = store.Get(s.ctx, 999999)
	s.ErrorIs(err, domain.ErrJournalNotFound)
}

func (s *PostgresIntegrationSuite) TestRecommendationStore_InsertIsIdempotent() {
	store := NewRecommendationStore(s.db)
	jID := s.createJournal("Energy")
	now := time.Now().Truncate(time.Microsecond)

	id := s.insertRec(jID, "10.1/a", 0.6, "hydrogen", now)

	created, err := store.Insert(s.ctx, &domain.Recommendation{
		JournalID: jID, ExternalID: "10.1/a", Score: 0.9, Category: domain.CategoryHighlyRelevant,
	})
	s.NoError(err)
	s.False(created)

	exists, err := store.Exists(s.ctx, jID, "10.1/a")
	s.NoError(err)
	s.True(exists)

	rec, err := store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(0.6, rec.Score)
	s.Equal("Energy", rec.JournalName)
	s.Equal([]string{"Ada Lovelace"}, rec.Authors)
	s.Require().NotNil(rec.Year)
	s.Equal(2024, *rec.Year)
	s.Equal(domain.StatusUnread, rec.Status)
	s.Nil(rec.ReviewedAt)

	_, err = store.Insert(s.ctx, &domain.Recommendation{
		JournalID: 999999, ExternalID: "x", Category: domain.CategoryRelevant,
	})
	s.ErrorIs(err, domain.ErrJournalNotFound)
}

func (s *PostgresIntegrationSuite) TestRecommendationStore_ListFilters() {
	store := NewRecommendationStore(s.db)
	jID := s.createJournal("Energy")
	base := time.Now().Truncate(time.Microsecond)

	s.insertRec(jID, "a", 0.6, "hydrogen", base)
	s.insertRec(jID, "b", 0.8, "co2 (via carbon dioxide)", base.Add(time.Hour))
	s.insertRec(jID, "c", 0.6, "Hydrogen, ammonia", base.Add(2*time.Hour))

	list, err := store.List(s.ctx, domain.RecommendationFilter{})
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("b", list[0].ExternalID)
	s.Equal("c", list[1].ExternalID)

	list, err = store.List(s.ctx, domain.RecommendationFilter{Category: domain.CategoryRelevant, Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("c", list[0].ExternalID)

	page, total, err := store.ListPapers(s.ctx, domain.PaperFilter{Keyword: "HYDROGEN", Limit: 1})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(page, 1)
	s.Equal("c", page[0].ExternalID)

	_, total, err = store.ListPapers(s.ctx, domain.PaperFilter{Keyword: "100%"})
	s.Require().NoError(err)
	s.Equal(0, total)

	page, total, err = store.ListPapers(s.ctx, domain.PaperFilter{JournalID: jID, Limit: 10, Offset: 2})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(page, 1)
	s.Equal("a", page[0].ExternalID)
}

func (s *PostgresIntegrationSuite) TestRecommendationStore_StatusRetentionAndStatistics() {
	store := NewRecommendationStore(s.db)
	jID := s.createJournal("Energy")
	now := time.Now().Truncate(time.Microsecond)

	a := s.insertRec(jID, "a", 0.6, "", now)
	b := s.insertRec(jID, "b", 0.6, "", now)
	s.insertRec(jID, "c", 0.8, "", now)

	s.Require().NoError(store.UpdateStatus(s.ctx, a, domain.StatusConfirmed, now.AddDate(0, 0, -100)))
	s.Require().NoError(store.UpdateStatus(s.ctx, b, domain.StatusDismissed, now))
	s.ErrorIs(store.UpdateStatus(s.ctx, 999999, domain.StatusConfirmed, now), domain.ErrRecommendationNotFound)

	stats, err := store.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(1, stats.Unread)
	s.Equal(1, stats.ByStatus[domain.StatusConfirmed])
	s.Equal(1, stats.ByStatus[domain.StatusDismissed])
	s.Equal(1, stats.ByCategory[domain.CategoryHighlyRelevant])
	s.Zero(stats.ByCategory[domain.CategoryRelevant])
	s.Equal([]domain.JournalCount{{Name: "Energy", Count: 3}}, stats.ByJournal)
	s.Require().NotNil(stats.LastFetchedAt)

	deleted, err := store.DeleteReviewedBefore(s.ctx, now.AddDate(0, 0, -90))
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = store.Get(s.ctx, a)
	s.ErrorIs(err, domain.ErrRecommendationNotFound)

	s.Require().NoError(store.Delete(s.ctx, b))
	s.ErrorIs(store.Delete(s.ctx, b), domain.ErrRecommendationNotFound)
}

func (s *PostgresIntegrationSuite) TestRecommendationStore_SecondReviewRejected() {
	store := NewRecommendationStore(s.db)
	jID := s.createJournal("Energy")
	now := time.Now().Truncate(time.Microsecond)
	id := s.insertRec(jID, "a", 0.6, "", now)

	s.Require().NoError(store.UpdateStatus(s.ctx, id, domain.StatusConfirmed, now))
	s.ErrorIs(store.UpdateStatus(s.ctx, id, domain.StatusDismissed, now), domain.ErrInvalidTransition)

	got, err := store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StatusConfirmed, got.Status)
}

func (s *PostgresIntegrationSuite) TestRecommendationStore_ConcurrentReviewsOneWins() {
	store := NewRecommendationStore(s.db)
	tm := NewTransactionManager(s.db)
	jID := s.createJournal("Energy")
	now := time.Now().Truncate(time.Microsecond)
	id := s.insertRec(jID, "a", 0.6, "", now)

	statuses := []domain.Status{domain.StatusConfirmed, domain.StatusDismissed}
	errs := make([]error, len(statuses))

	var wg sync.WaitGroup
	for i, status := range statuses {
		i, status := i, status
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = tm.WithTransaction(s.ctx, func(ctx context.Context) error {
				return store.UpdateStatus(ctx, id, status, now)
			})
		}()
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInvalidTransition):
			rejected++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, rejected)
}

func (s *PostgresIntegrationSuite) TestJournalStore_DeleteCascades() {
	jID := s.createJournal("Energy")
	id := s.insertRec(jID, "a", 0.6, "", time.Now())

	s.Require().NoError(NewJournalStore(s.db).Delete(s.ctx, jID))

	_, err := NewRecommendationStore(s.db).Get(s.ctx, id)
	s.ErrorIs(err, domain.ErrRecommendationNotFound)
}

func (s *PostgresIntegrationSuite) TestLibraryStore_Corpus() {
	var docID int64
	err := s.db.GetContext(s.ctx, &docID, `
		INSERT INTO documents (title, abstract, authors, year)
		VALUES ('Hydrogen storage', 'Metal hydrides', 'Doe, J.', 2021)
		RETURNING id`)
	s.Require().NoError(err)

	_, err = s.db.ExecContext(s.ctx, `INSERT INTO documents (title) VALUES ('Untitled draft')`)
	s.Require().NoError(err)

	var tagID int64
	s.Require().NoError(s.db.GetContext(s.ctx, &tagID, `INSERT INTO tags (name) VALUES ('energy') RETURNING id`))
	_, err = s.db.ExecContext(s.ctx, `INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2)`, docID, tagID)
	s.Require().NoError(err)
	_, err = s.db.ExecContext(s.ctx, `INSERT INTO annotations (document_id, content) VALUES ($1, 'check capacity')`, docID)
	s.Require().NoError(err)

	docs, err := NewLibraryStore(s.db).Corpus(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)

	s.Equal("Hydrogen storage", docs[0].Title)
	s.Equal([]string{"energy"}, docs[0].Tags)
	s.Equal([]string{"check capacity"}, docs[0].Annotations)
	s.Require().NotNil(docs[0].Year)
	s.Equal(2021, *docs[0].Year)

	s.Equal("Untitled draft", docs[1].Title)
	s.Empty(docs[1].Abstract)
	s.Empty(docs[1].Tags)
	s.Nil(docs[1].Year)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	jID := s.createJournal("Energy")

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := NewRecommendationStore(s.db).Insert(ctx, &domain.Recommendation{
			JournalID: jID, ExternalID: "tx", Score: 0.6, Category: domain.CategoryRelevant,
		})
		return err
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM recommendations WHERE external_id = $1", "tx")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	journals := NewJournalStore(s.db)
	jID := s.createJournal("Energy")

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := NewRecommendationStore(s.db).Insert(ctx, &domain.Recommendation{
			JournalID: jID, ExternalID: "rollback", Score: 0.6, Category: domain.CategoryRelevant,
		})
		if err != nil {
			return err
		}
		if err := journals.SetActive(ctx, jID, false); err != nil {
			return err
		}
		return context.Canceled
	})
	s.ErrorIs(err, context.Canceled)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM recommendations WHERE external_id = $1", "rollback")
	s.NoError(err)
	s.Equal(0, count)

	j, err := journals.Get(s.ctx, jID)
	s.Require().NoError(err)
	s.True(j.Active)
}
