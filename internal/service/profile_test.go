package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper_recommender/internal/config"
	"paper_recommender/internal/domain"
	"paper_recommender/internal/keywords"
	"paper_recommender/internal/storage/memory"
)

// gatedLibrary holds Corpus until release is closed.
type gatedLibrary struct {
	entered chan struct{}
	release chan struct{}
	docs    []domain.CorpusDocument
}

func (l *gatedLibrary) Corpus(ctx context.Context) ([]domain.CorpusDocument, error) {
	close(l.entered)
	select {
	case <-l.release:
		return l.docs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newGatedService(t *testing.T, lib Library) *RecommendService {
	t.Helper()

	vocab, err := keywords.Default()
	require.NoError(t, err)

	db := memory.New()
	return NewRecommendService(Deps{
		Journals:        db.Journals(),
		Recommendations: db.Recommendations(),
		Source:          &stubSource{articles: make(map[string][]domain.Candidate)},
		Library:         lib,
		TxManager:       db.TxManager(),
		Vocabulary:      vocab,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), config.RecommendConfig{
		DaysBack:      7,
		MaxResults:    100,
		MinScore:      0.3,
		RetentionDays: 90,
	})
}

func TestProfileStatus_DoesNotWaitForCorpusLoad(t *testing.T) {
	lib := &gatedLibrary{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		docs: []domain.CorpusDocument{
			{Title: "Hydrogen storage", Abstract: "Salt cavern hydrogen storage."},
		},
	}
	svc := newGatedService(t, lib)

	built := make(chan bool, 1)
	go func() {
		built <- svc.ensureProfile(context.Background()) != nil
	}()
	<-lib.entered

	status := make(chan domain.ProfileStatus, 1)
	go func() { status <- svc.ProfileStatus() }()

	select {
	case st := <-status:
		assert.False(t, st.Loaded)
		assert.False(t, st.Ready)
	case <-time.After(2 * time.Second):
		t.Fatal("ProfileStatus blocked while the corpus was loading")
	}

	close(lib.release)
	require.True(t, <-built)

	st := svc.ProfileStatus()
	assert.True(t, st.Loaded)
	assert.True(t, st.Ready)
	assert.Equal(t, 1, st.Documents)
}

func TestEnsureProfile_RefreshDuringBuildDiscardsResult(t *testing.T) {
	lib := &gatedLibrary{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		docs: []domain.CorpusDocument{
			{Title: "Wind turbine fatigue", Abstract: "Blade fatigue under gusts."},
		},
	}
	svc := newGatedService(t, lib)

	done := make(chan struct{})
	go func() {
		svc.ensureProfile(context.Background())
		close(done)
	}()
	<-lib.entered

	svc.Refresh()
	close(lib.release)
	<-done

	// the build started before Refresh is not cached
	assert.False(t, svc.ProfileStatus().Loaded)
}
