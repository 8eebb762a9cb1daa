package profile

import (
	"math"
	"sort"

	"paper_recommender/internal/domain"
)

// vector is a sparse, L2-normalized term-weight vector keyed by vocabulary index.
type vector map[int]float64

// Profile is a fitted vocabulary plus the researcher's weighted term vector.
// A nil *Profile is valid: similarity scoring reports ErrProfileNotBuilt and
// the explanation helpers return nothing.
type Profile struct {
	terms     []string
	index     map[string]int
	idf       []float64
	vector    vector
	norm      float64
	documents int
}

// Similarity pairs a candidate index with its cosine similarity to the profile.
type Similarity struct {
	Index int
	Score float64
}

// Documents is the number of library documents the profile was built from.
func (p *Profile) Documents() int {
	if p == nil {
		return 0
	}
	return p.documents
}

// VocabularySize is the number of terms kept after the feature cap.
func (p *Profile) VocabularySize() int {
	if p == nil {
		return 0
	}
	return len(p.terms)
}

// Similarities scores each candidate's title+abstract against the profile,
// sorted by score descending. Ties keep candidate order.
func (p *Profile) Similarities(candidates []domain.Candidate) ([]Similarity, error) {
	if p == nil {
		return nil, domain.ErrProfileNotBuilt
	}

	out := make([]Similarity, len(candidates))
	for i, c := range candidates {
		out[i] = Similarity{Index: i, Score: p.Score(c.Text())}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Score is the cosine similarity between text and the profile, in [0,1].
func (p *Profile) Score(text string) float64 {
	if p == nil || p.norm == 0 {
		return 0
	}
	v := p.transform(text)
	n := norm(v)
	if n == 0 {
		return 0
	}
	var dot float64
	for i, w := range v {
		dot += w * p.vector[i]
	}
	return math.Min(1, dot/(n*p.norm))
}

// Explain returns the k highest-weighted vocabulary terms of text.
func (p *Profile) Explain(text string, k int) []domain.TermWeight {
	if p == nil || k <= 0 {
		return nil
	}
	return p.top(p.transform(text), k)
}

// Top returns the k highest-weighted terms of the profile itself.
func (p *Profile) Top(k int) []domain.TermWeight {
	if p == nil || k <= 0 {
		return nil
	}
	return p.top(p.vector, k)
}

// CommonKeywords intersects the top 2k terms of text with the top 2k terms of
// the profile, keeping text order, and returns at most k of them.
func (p *Profile) CommonKeywords(text string, k int) []string {
	if p == nil || k <= 0 {
		return nil
	}

	mine := make(map[string]struct{})
	for _, tw := range p.Top(2 * k) {
		mine[tw.Term] = struct{}{}
	}

	var common []string
	for _, tw := range p.Explain(text, 2*k) {
		if _, ok := mine[tw.Term]; ok {
			common = append(common, tw.Term)
			if len(common) == k {
				break
			}
		}
	}
	return common
}

func (p *Profile) transform(text string) vector {
	v := make(vector)
	for term, n := range countTerms(text) {
		i, ok := p.index[term]
		if !ok {
			continue
		}
		// sub-linear tf
		v[i] = (1 + math.Log(float64(n))) * p.idf[i]
	}
	if n := norm(v); n > 0 {
		for i := range v {
			v[i] /= n
		}
	}
	return v
}

func (p *Profile) top(v vector, k int) []domain.TermWeight {
	out := make([]domain.TermWeight, 0, len(v))
	for i, w := range v {
		if w > 0 {
			out = append(out, domain.TermWeight{Term: p.terms[i], Weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func norm(v vector) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}
