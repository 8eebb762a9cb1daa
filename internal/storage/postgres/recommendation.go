package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"paper_recommender/internal/domain"
)

const topJournals = 10

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var recommendationColumns = []string{
	"r.id", "r.journal_id", "j.name AS journal_name", "r.title", "r.abstract",
	"r.authors", "r.year", "r.external_id", "r.score", "r.category", "r.reason",
	"r.matched_keywords", "r.status", "r.fetched_at", "r.reviewed_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type RecommendationStore struct {
	db *sqlx.DB
}

func NewRecommendationStore(db *sqlx.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

type recommendationRow struct {
	ID              int64          `db:"id"`
	JournalID       int64          `db:"journal_id"`
	JournalName     string         `db:"journal_name"`
	Title           string         `db:"title"`
	Abstract        string         `db:"abstract"`
	Authors         pq.StringArray `db:"authors"`
	Year            sql.NullInt64  `db:"year"`
	ExternalID      string         `db:"external_id"`
	Score           float64        `db:"score"`
	Category        string         `db:"category"`
	Reason          string         `db:"reason"`
	MatchedKeywords string         `db:"matched_keywords"`
	Status          string         `db:"status"`
	FetchedAt       time.Time      `db:"fetched_at"`
	ReviewedAt      sql.NullTime   `db:"reviewed_at"`
}

func (r recommendationRow) toDomain() domain.Recommendation {
	rec := domain.Recommendation{
		ID:              r.ID,
		JournalID:       r.JournalID,
		JournalName:     r.JournalName,
		Title:           r.Title,
		Abstract:        r.Abstract,
		Authors:         []string(r.Authors),
		ExternalID:      r.ExternalID,
		Score:           r.Score,
		Category:        domain.Category(r.Category),
		Reason:          r.Reason,
		MatchedKeywords: r.MatchedKeywords,
		Status:          domain.Status(r.Status),
		FetchedAt:       r.FetchedAt,
	}
	if r.Year.Valid {
		y := int(r.Year.Int64)
		rec.Year = &y
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time
		rec.ReviewedAt = &t
	}
	return rec
}

func (s *RecommendationStore) Exists(ctx context.Context, journalID int64, externalID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		`SELECT EXISTS(SELECT 1 FROM recommendations WHERE journal_id = $1 AND external_id = $2)`,
		journalID, externalID)
	if err != nil {
		return false, fmt.Errorf("check recommendation: %w", err)
	}
	return exists, nil
}

// Insert stores rec and sets its ID. It reports false when (journal, external id) is taken.
func (s *RecommendationStore) Insert(ctx context.Context, rec *domain.Recommendation) (bool, error) {
	query := `
		INSERT INTO recommendations (
			journal_id, title, abstract, authors, year, external_id, score,
			category, reason, matched_keywords, status, fetched_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (journal_id, external_id) DO NOTHING
		RETURNING id`

	status := rec.Status
	if status == "" {
		status = domain.StatusUnread
	}
	fetchedAt := rec.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		rec.JournalID,
		rec.Title,
		rec.Abstract,
		pq.StringArray(nonNil(rec.Authors)),
		rec.Year,
		rec.ExternalID,
		rec.Score,
		string(rec.Category),
		rec.Reason,
		rec.MatchedKeywords,
		string(status),
		fetchedAt,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case isPgError(err, codeForeignKeyViolation):
		return false, domain.ErrJournalNotFound
	case err != nil:
		return false, fmt.Errorf("insert recommendation: %w", err)
	}

	rec.ID = id
	return true, nil
}

func (s *RecommendationStore) Get(ctx context.Context, id int64) (*domain.Recommendation, error) {
	query, args, err := s.selectRecommendations().Where(sq.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var row recommendationRow
	err = sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecommendationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}

	rec := row.toDomain()
	return &rec, nil
}

// List orders by score descending, then fetched time descending.
func (s *RecommendationStore) List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error) {
	q := s.selectRecommendations().OrderBy("r.score DESC", "r.fetched_at DESC", "r.id DESC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"r.status": string(filter.Status)})
	}
	if filter.Category != "" {
		q = q.Where(sq.Eq{"r.category": string(filter.Category)})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	return s.query(ctx, q)
}

// ListPapers returns one newest-first page plus the total matching count.
func (s *RecommendationStore) ListPapers(ctx context.Context, filter domain.PaperFilter) ([]domain.Recommendation, int, error) {
	where := sq.And{}
	if filter.JournalID != 0 {
		where = append(where, sq.Eq{"r.journal_id": filter.JournalID})
	}
	if filter.Keyword != "" {
		where = append(where, sq.ILike{"r.matched_keywords": "%" + likeEscaper.Replace(filter.Keyword) + "%"})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("recommendations r").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count papers: %w", err)
	}

	q := s.selectRecommendations().
		Where(where).
		OrderBy("r.fetched_at DESC", "r.id DESC").
		Offset(uint64(filter.Offset))
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	papers, err := s.query(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// UpdateStatus moves an unread record to status. The unread guard is part of
// the UPDATE so two concurrent reviews cannot both succeed.
func (s *RecommendationStore) UpdateStatus(ctx context.Context, id int64, status domain.Status, reviewedAt time.Time) error {
	ex := GetExecutor(ctx, s.db)

	res, err := ex.ExecContext(ctx, `
		UPDATE recommendations SET status = $2, reviewed_at = $3
		WHERE id = $1 AND status = $4`,
		id, string(status), reviewedAt, string(domain.StatusUnread))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, ex, &exists,
		`SELECT EXISTS (SELECT 1 FROM recommendations WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check recommendation: %w", err)
	}
	if !exists {
		return domain.ErrRecommendationNotFound
	}
	return domain.ErrInvalidTransition
}

func (s *RecommendationStore) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM recommendations WHERE id = $1`, id)
}

// DeleteReviewedBefore removes confirmed and dismissed records reviewed before cutoff.
func (s *RecommendationStore) DeleteReviewedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		DELETE FROM recommendations
		WHERE status IN ('confirmed', 'dismissed') AND reviewed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete reviewed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Statistics counts by status; by-category counts cover unread records only.
func (s *RecommendationStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	exec := GetExecutor(ctx, s.db)
	stats := &domain.Statistics{
		ByStatus:   make(map[domain.Status]int),
		ByCategory: make(map[domain.Category]int),
		ByJournal:  make([]domain.JournalCount, 0),
	}

	var byStatus []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := sqlx.SelectContext(ctx, exec, &byStatus,
		`SELECT status, COUNT(*) AS count FROM recommendations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for _, r := range byStatus {
		stats.ByStatus[domain.Status(r.Status)] = r.Count
		stats.Total += r.Count
	}
	stats.Unread = stats.ByStatus[domain.StatusUnread]

	var byCategory []struct {
		Category string `db:"category"`
		Count    int    `db:"count"`
	}
	err = sqlx.SelectContext(ctx, exec, &byCategory, `
		SELECT category, COUNT(*) AS count
		FROM recommendations
		WHERE status = 'unread'
		GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	for _, r := range byCategory {
		stats.ByCategory[domain.Category(r.Category)] = r.Count
	}

	var byJournal []struct {
		Name  string `db:"name"`
		Count int    `db:"count"`
	}
	err = sqlx.SelectContext(ctx, exec, &byJournal, `
		SELECT j.name, COUNT(*) AS count
		FROM recommendations r
		JOIN journals j ON j.id = r.journal_id
		GROUP BY j.id, j.name
		ORDER BY count DESC, j.name
		LIMIT $1`, topJournals)
	if err != nil {
		return nil, fmt.Errorf("count by journal: %w", err)
	}
	for _, r := range byJournal {
		stats.ByJournal = append(stats.ByJournal, domain.JournalCount{Name: r.Name, Count: r.Count})
	}

	var last sql.NullTime
	if err := sqlx.GetContext(ctx, exec, &last, `SELECT MAX(fetched_at) FROM recommendations`); err != nil {
		return nil, fmt.Errorf("last fetched: %w", err)
	}
	if last.Valid {
		t := last.Time
		stats.LastFetchedAt = &t
	}

	return stats, nil
}

func (s *RecommendationStore) selectRecommendations() sq.SelectBuilder {
	return psql.Select(recommendationColumns...).
		From("recommendations r").
		Join("journals j ON j.id = r.journal_id")
}

func (s *RecommendationStore) query(ctx context.Context, q sq.SelectBuilder) ([]domain.Recommendation, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []recommendationRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	out := make([]domain.Recommendation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *RecommendationStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecommendationNotFound
	}
	return nil
}
