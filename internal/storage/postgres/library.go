package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"paper_recommender/internal/domain"
)

// LibraryStore reads the researcher's own documents with their tags and annotations.
type LibraryStore struct {
	db *sqlx.DB
}

func NewLibraryStore(db *sqlx.DB) *LibraryStore {
	return &LibraryStore{db: db}
}

type documentRow struct {
	Title       sql.NullString `db:"title"`
	Abstract    sql.NullString `db:"abstract"`
	Authors     sql.NullString `db:"authors"`
	Year        sql.NullInt64  `db:"year"`
	Tags        pq.StringArray `db:"tags"`
	Annotations pq.StringArray `db:"annotations"`
}

func (s *LibraryStore) Corpus(ctx context.Context) ([]domain.CorpusDocument, error) {
	query := `
		SELECT
			d.title, d.abstract, d.authors, d.year,
			ARRAY(
				SELECT t.name FROM tags t
				JOIN document_tags dt ON dt.tag_id = t.id
				WHERE dt.document_id = d.id
				ORDER BY t.name
			) AS tags,
			ARRAY(
				SELECT a.content FROM annotations a
				WHERE a.document_id = d.id
				ORDER BY a.id
			) AS annotations
		FROM documents d
		ORDER BY d.id`

	var rows []documentRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	docs := make([]domain.CorpusDocument, 0, len(rows))
	for _, r := range rows {
		doc := domain.CorpusDocument{
			Title:       r.Title.String,
			Abstract:    r.Abstract.String,
			Authors:     r.Authors.String,
			Tags:        []string(r.Tags),
			Annotations: []string(r.Annotations),
		}
		if r.Year.Valid {
			y := int(r.Year.Int64)
			doc.Year = &y
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
