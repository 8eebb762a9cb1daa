package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"paper_recommender/internal/domain"
)

type JournalStore struct {
	db *sqlx.DB
}

func NewJournalStore(db *sqlx.DB) *JournalStore {
	return &JournalStore{db: db}
}

type journalRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	ExternalID  sql.NullString `db:"external_id"`
	Keywords    pq.StringArray `db:"keywords"`
	Frequency   string         `db:"frequency"`
	Active      bool           `db:"is_active"`
	LastFetched sql.NullTime   `db:"last_fetched"`
	AddedAt     time.Time      `db:"added_at"`
}

func (r journalRow) toDomain() domain.Journal {
	j := domain.Journal{
		ID:        r.ID,
		Name:      r.Name,
		Keywords:  []string(r.Keywords),
		Frequency: domain.Frequency(r.Frequency),
		Active:    r.Active,
		AddedAt:   r.AddedAt,
	}
	if r.ExternalID.Valid {
		id := r.ExternalID.String
		j.ExternalID = &id
	}
	if r.LastFetched.Valid {
		t := r.LastFetched.Time
		j.LastFetched = &t
	}
	return j
}

const journalColumns = `id, name, external_id, keywords, frequency, is_active, last_fetched, added_at`

func (s *JournalStore) Create(ctx context.Context, journal *domain.Journal) (int64, error) {
	query := `
		INSERT INTO journals (name, external_id, keywords, frequency, is_active, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	addedAt := journal.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		journal.Name,
		journal.ExternalID,
		pq.StringArray(nonNil(journal.Keywords)),
		string(journal.Frequency),
		journal.Active,
		addedAt,
	).Scan(&id)
	if isPgError(err, codeUniqueViolation) {
		return 0, domain.ErrDuplicateJournal
	}
	if err != nil {
		return 0, fmt.Errorf("insert journal: %w", err)
	}

	return id, nil
}

func (s *JournalStore) Get(ctx context.Context, id int64) (*domain.Journal, error) {
	var row journalRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row,
		`SELECT `+journalColumns+` FROM journals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJournalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get journal: %w", err)
	}

	j := row.toDomain()
	return &j, nil
}

// List returns journals ordered by name.
func (s *JournalStore) List(ctx context.Context, activeOnly bool) ([]domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name, id`

	var rows []journalRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}

	out := make([]domain.Journal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *JournalStore) SetActive(ctx context.Context, id int64, active bool) error {
	return s.exec(ctx, `UPDATE journals SET is_active = $2 WHERE id = $1`, id, active)
}

func (s *JournalStore) UpdateKeywords(ctx context.Context, id int64, keywords []string) error {
	return s.exec(ctx, `UPDATE journals SET keywords = $2 WHERE id = $1`, id, pq.StringArray(nonNil(keywords)))
}

func (s *JournalStore) MarkFetched(ctx context.Context, id int64, at time.Time) error {
	return s.exec(ctx, `UPDATE journals SET last_fetched = $2 WHERE id = $1`, id, at)
}

// Delete removes the journal; recommendations go with it via ON DELETE CASCADE.
func (s *JournalStore) Delete(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM journals WHERE id = $1`, id)
}

func (s *JournalStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrJournalNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
