package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper_recommender/internal/domain"
)

func seedJournal(t *testing.T, db *DB, name string) int64 {
	t.Helper()
	id, err := db.Journals().Create(context.Background(), &domain.Journal{
		Name:     name,
		Keywords: []string{"hydrogen"},
		Active:   true,
	})
	require.NoError(t, err)
	return id
}

func TestJournalStore_CRUD(t *testing.T) {
	ctx := context.Background()
	db := New()
	store := db.Journals()

	bID := seedJournal(t, db, "B Journal")
	aID := seedJournal(t, db, "A Journal")

	_, err := store.Create(ctx, &domain.Journal{Name: "a journal"})
	assert.ErrorIs(t, err, domain.ErrDuplicateJournal)

	require.NoError(t, store.SetActive(ctx, bID, false))

	active, err := store.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, aID, active[0].ID)

	all, err := store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A Journal", all[0].Name)

	now := time.Now()
	require.NoError(t, store.MarkFetched(ctx, aID, now))
	require.NoError(t, store.UpdateKeywords(ctx, aID, []string{"co2", "ammonia"}))

	got, err := store.Get(ctx, aID)
	require.NoError(t, err)
	require.NotNil(t, got.LastFetched)
	assert.True(t, got.LastFetched.Equal(now))
	assert.Equal(t, []string{"co2", "ammonia"}, got.Keywords)

	_, err = store.Get(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrJournalNotFound)
	assert.ErrorIs(t, store.SetActive(ctx, 999, true), domain.ErrJournalNotFound)
}

func TestRecommendationStore_DedupAndCascade(t *testing.T) {
	ctx := context.Background()
	db := New()
	jID := seedJournal(t, db, "Energy")
	recs := db.Recommendations()

	rec := &domain.Recommendation{JournalID: jID, ExternalID: "10.1/a", Score: 0.6, Status: domain.StatusUnread}
	created, err := recs.Insert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, rec.ID)

	created, err = recs.Insert(ctx, &domain.Recommendation{JournalID: jID, ExternalID: "10.1/a"})
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := recs.Exists(ctx, jID, "10.1/a")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := recs.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Energy", got.JournalName)

	_, err = recs.Insert(ctx, &domain.Recommendation{JournalID: 999, ExternalID: "x"})
	assert.ErrorIs(t, err, domain.ErrJournalNotFound)

	require.NoError(t, db.Journals().Delete(ctx, jID))
	_, err = recs.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrRecommendationNotFound)
}

func TestRecommendationStore_ListOrdering(t *testing.T) {
	ctx := context.Background()
	db := New()
	jID := seedJournal(t, db, "Energy")
	recs := db.Recommendations()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, r := range []domain.Recommendation{
		{ExternalID: "a", Score: 0.6, Category: domain.CategoryRelevant, MatchedKeywords: "hydrogen", FetchedAt: base},
		{ExternalID: "b", Score: 0.8, Category: domain.CategoryHighlyRelevant, MatchedKeywords: "co2 (via carbon dioxide)", FetchedAt: base.Add(time.Hour)},
		{ExternalID: "c", Score: 0.6, Category: domain.CategoryRelevant, MatchedKeywords: "Hydrogen, ammonia", FetchedAt: base.Add(2 * time.Hour)},
	} {
		r.JournalID = jID
		r.Status = domain.StatusUnread
		_, err := recs.Insert(ctx, &r)
		require.NoError(t, err, i)
	}

	list, err := recs.List(ctx, domain.RecommendationFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{list[0].ExternalID, list[1].ExternalID, list[2].ExternalID})

	list, err = recs.List(ctx, domain.RecommendationFilter{Category: domain.CategoryRelevant, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ExternalID)

	page, total, err := recs.ListPapers(ctx, domain.PaperFilter{Keyword: "hydrogen", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ExternalID)

	page, total, err = recs.ListPapers(ctx, domain.PaperFilter{Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, page)
}

func TestRecommendationStore_RetentionAndStatistics(t *testing.T) {
	ctx := context.Background()
	db := New()
	jID := seedJournal(t, db, "Energy")
	recs := db.Recommendations()
	now := time.Now()

	ids := make([]int64, 0, 3)
	for _, ext := range []string{"a", "b", "c"} {
		r := &domain.Recommendation{
			JournalID: jID, ExternalID: ext, Status: domain.StatusUnread,
			Score: 0.6, Category: domain.CategoryRelevant, FetchedAt: now,
		}
		_, err := recs.Insert(ctx, r)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	require.NoError(t, recs.UpdateStatus(ctx, ids[0], domain.StatusConfirmed, now.AddDate(0, 0, -100)))
	require.NoError(t, recs.UpdateStatus(ctx, ids[1], domain.StatusDismissed, now))

	stats, err := recs.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Unread)
	assert.Equal(t, 1, stats.ByStatus[domain.StatusConfirmed])
	assert.Equal(t, 1, stats.ByCategory[domain.CategoryRelevant])
	assert.Equal(t, []domain.JournalCount{{Name: "Energy", Count: 3}}, stats.ByJournal)
	require.NotNil(t, stats.LastFetchedAt)

	deleted, err := recs.DeleteReviewedBefore(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = recs.Get(ctx, ids[0])
	assert.ErrorIs(t, err, domain.ErrRecommendationNotFound)
}

func TestRecommendationStore_UpdateStatusOnlyFromUnread(t *testing.T) {
	ctx := context.Background()
	db := New()
	jID := seedJournal(t, db, "Energy")
	recs := db.Recommendations()
	now := time.Now()

	r := &domain.Recommendation{
		JournalID: jID, ExternalID: "a", Status: domain.StatusUnread,
		Score: 0.6, Category: domain.CategoryRelevant, FetchedAt: now,
	}
	_, err := recs.Insert(ctx, r)
	require.NoError(t, err)

	require.NoError(t, recs.UpdateStatus(ctx, r.ID, domain.StatusConfirmed, now))

	err = recs.UpdateStatus(ctx, r.ID, domain.StatusDismissed, now.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := recs.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, got.ReviewedAt.Equal(now))

	err = recs.UpdateStatus(ctx, r.ID+100, domain.StatusConfirmed, now)
	assert.ErrorIs(t, err, domain.ErrRecommendationNotFound)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := New()
	jID := seedJournal(t, db, "Energy")
	boom := errors.New("boom")

	err := db.TxManager().WithTransaction(ctx, func(ctx context.Context) error {
		_, err := db.Recommendations().Insert(ctx, &domain.Recommendation{JournalID: jID, ExternalID: "a"})
		require.NoError(t, err)
		require.NoError(t, db.Journals().SetActive(ctx, jID, false))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := db.Recommendations().Exists(ctx, jID, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	j, err := db.Journals().Get(ctx, jID)
	require.NoError(t, err)
	assert.True(t, j.Active)
}
