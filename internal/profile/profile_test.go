package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper_recommender/internal/domain"
)

func library() []domain.CorpusDocument {
	return []domain.CorpusDocument{
		{
			Title:       "Hydrogen production by electrolysis",
			Abstract:    "We study electrolysis for hydrogen production at scale.",
			Tags:        []string{"hydrogen", "electrolysis"},
			Annotations: []string{"compare with ammonia cracking"},
		},
		{
			Title:    "Ammonia as a hydrogen carrier",
			Abstract: "Ammonia synthesis and cracking routes are reviewed.",
			Tags:     []string{"ammonia"},
		},
	}
}

func TestAnalyze_StopWordsAndBigrams(t *testing.T) {
	got := analyze("The hydrogen AND the ammonia, a x")

	assert.Equal(t, []string{"hydrogen", "ammonia", "hydrogen ammonia"}, got)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	p, err := NewBuilder(0).Build(nil)

	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 0, p.VocabularySize())
	assert.Nil(t, p.Explain("hydrogen", 3))
	assert.Nil(t, p.CommonKeywords("hydrogen", 3))
	assert.Zero(t, p.Score("hydrogen"))

	_, err = p.Similarities([]domain.Candidate{{Title: "hydrogen"}})
	assert.ErrorIs(t, err, domain.ErrProfileNotBuilt)
}

func TestBuild_IDFCountsEachDocument(t *testing.T) {
	p, err := NewBuilder(100).Build([]domain.CorpusDocument{
		{Abstract: "turbine blade"},
		{Abstract: "turbine tower"},
		{Abstract: "turbine rotor"},
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	// n = 3 documents; "turbine" is in all of them, "blade" in one
	assert.InDelta(t, 1.0, p.idf[p.index["turbine"]], 1e-9)
	assert.InDelta(t, math.Log(4.0/2.0)+1, p.idf[p.index["blade"]], 1e-9)
}

func TestBuild_OnlyStopWords(t *testing.T) {
	p, err := NewBuilder(0).Build([]domain.CorpusDocument{{Title: "the and of"}})

	assert.ErrorIs(t, err, ErrEmptyVocabulary)
	assert.Nil(t, p)
}

func TestBuild_MaxFeaturesCap(t *testing.T) {
	p, err := NewBuilder(3).Build(library())
	require.NoError(t, err)

	assert.Equal(t, 3, p.VocabularySize())
	assert.Equal(t, 2, p.Documents())
	for _, tw := range p.Top(3) {
		assert.Contains(t, []string{"hydrogen", "ammonia", "electrolysis"}, tw.Term)
	}
}

func TestSimilarities_OrderedAndStable(t *testing.T) {
	p, err := NewBuilder(0).Build(library())
	require.NoError(t, err)

	candidates := []domain.Candidate{
		{Title: "Perovskite solar cells"},
		{Title: "Hydrogen production via electrolysis", Abstract: "Electrolysis of water for hydrogen."},
		{Title: "Wind turbine blades"},
		{Title: "Ammonia cracking for hydrogen"},
	}

	sims, err := p.Similarities(candidates)
	require.NoError(t, err)
	require.Len(t, sims, 4)

	assert.Equal(t, 1, sims[0].Index)
	assert.Greater(t, sims[0].Score, sims[1].Score)
	assert.Equal(t, 3, sims[1].Index)
	// both unrelated candidates score zero and keep their input order
	assert.Equal(t, 0, sims[2].Index)
	assert.Equal(t, 2, sims[3].Index)
	assert.Zero(t, sims[3].Score)
	for _, s := range sims {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
}

func TestSimilarities_Empty(t *testing.T) {
	p, err := NewBuilder(0).Build(library())
	require.NoError(t, err)

	sims, err := p.Similarities(nil)
	require.NoError(t, err)
	assert.Empty(t, sims)
}

func TestExplainAndCommonKeywords(t *testing.T) {
	p, err := NewBuilder(0).Build(library())
	require.NoError(t, err)

	text := "Hydrogen storage with ammonia in salt caverns"

	top := p.Explain(text, 2)
	require.Len(t, top, 2)
	assert.GreaterOrEqual(t, top[0].Weight, top[1].Weight)

	common := p.CommonKeywords(text, 6)
	assert.Contains(t, common, "hydrogen")
	assert.Contains(t, common, "ammonia")
	assert.NotContains(t, common, "caverns")

	assert.Empty(t, p.Explain("quantum chromodynamics", 3))
}
