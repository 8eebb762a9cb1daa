// Package memory provides in-process implementations of the service stores.
package memory

import (
	"context"
	"sync"

	"paper_recommender/internal/domain"
)

// DB holds journals and recommendations in maps. All stores created from the
// same DB share its data.
type DB struct {
	mu              sync.RWMutex
	journals        map[int64]domain.Journal
	recommendations map[int64]domain.Recommendation
	nextJournalID   int64
	nextRecID       int64

	txMu sync.Mutex
}

func New() *DB {
	return &DB{
		journals:        make(map[int64]domain.Journal),
		recommendations: make(map[int64]domain.Recommendation),
	}
}

func (db *DB) Journals() *JournalStore {
	return &JournalStore{db: db}
}

func (db *DB) Recommendations() *RecommendationStore {
	return &RecommendationStore{db: db}
}

func (db *DB) TxManager() *TransactionManager {
	return &TransactionManager{db: db}
}

type snapshot struct {
	journals        map[int64]domain.Journal
	recommendations map[int64]domain.Recommendation
	nextJournalID   int64
	nextRecID       int64
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s := snapshot{
		journals:        make(map[int64]domain.Journal, len(db.journals)),
		recommendations: make(map[int64]domain.Recommendation, len(db.recommendations)),
		nextJournalID:   db.nextJournalID,
		nextRecID:       db.nextRecID,
	}
	for id, j := range db.journals {
		s.journals[id] = j
	}
	for id, r := range db.recommendations {
		s.recommendations[id] = r
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.journals = s.journals
	db.recommendations = s.recommendations
	db.nextJournalID = s.nextJournalID
	db.nextRecID = s.nextRecID
}

// TransactionManager serializes transactions and rolls the whole DB back when
// fn fails. Stored values are copied on write, so a shallow snapshot is enough.
type TransactionManager struct {
	db *DB
}

func (m *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.db.txMu.Lock()
	defer m.db.txMu.Unlock()

	before := m.db.snapshot()

	if err := fn(ctx); err != nil {
		m.db.restore(before)
		return err
	}

	return nil
}

// Library serves a fixed corpus.
type Library struct {
	docs []domain.CorpusDocument
}

func NewLibrary(docs ...domain.CorpusDocument) *Library {
	return &Library{docs: docs}
}

func (l *Library) Corpus(ctx context.Context) ([]domain.CorpusDocument, error) {
	out := make([]domain.CorpusDocument, len(l.docs))
	copy(out, l.docs)
	return out, nil
}
