// Package profile builds a TF-IDF interest profile from a researcher's library
// and scores candidate articles against it by cosine similarity.
package profile

import (
	"errors"
	"math"
	"sort"
	"strings"

	"paper_recommender/internal/domain"
)

// DefaultMaxFeatures caps the vocabulary when the builder is configured with zero.
const DefaultMaxFeatures = 5000

// ErrEmptyVocabulary is returned when the corpus has no usable terms.
var ErrEmptyVocabulary = errors.New("empty vocabulary: corpus contains only stop words")

// Builder fits interest profiles. Title is weighted x3, tags x2, abstract and
// annotations x1.
type Builder struct {
	maxFeatures int
}

func NewBuilder(maxFeatures int) *Builder {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Builder{maxFeatures: maxFeatures}
}

// Build fits the term weighting over the corpus documents and vectorizes their
// concatenation into a single profile. An empty corpus yields a nil profile and no error.
func (b *Builder) Build(corpus []domain.CorpusDocument) (*Profile, error) {
	if len(corpus) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(corpus))
	for _, doc := range corpus {
		texts = append(texts, weightedText(doc))
	}

	p, err := b.fit(texts)
	if err != nil {
		return nil, err
	}

	p.documents = len(corpus)
	p.vector = p.transform(strings.Join(texts, " "))
	p.norm = norm(p.vector)
	return p, nil
}

func (b *Builder) fit(texts []string) (*Profile, error) {
	docFreq := make(map[string]int)
	totals := make(map[string]int)
	for _, text := range texts {
		for term, n := range countTerms(text) {
			docFreq[term]++
			totals[term] += n
		}
	}
	if len(totals) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(totals))
	for term := range totals {
		terms = append(terms, term)
	}
	if len(terms) > b.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if totals[terms[i]] != totals[terms[j]] {
				return totals[terms[i]] > totals[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:b.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(texts))
	p := &Profile{
		terms: terms,
		index: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	for i, term := range terms {
		p.index[term] = i
		// smoothed idf
		p.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	return p, nil
}

func weightedText(doc domain.CorpusDocument) string {
	var parts []string
	if doc.Title != "" {
		parts = append(parts, doc.Title, doc.Title, doc.Title)
	}
	if len(doc.Tags) > 0 {
		tags := strings.Join(doc.Tags, " ")
		parts = append(parts, tags, tags)
	}
	if doc.Abstract != "" {
		parts = append(parts, doc.Abstract)
	}
	if len(doc.Annotations) > 0 {
		parts = append(parts, strings.Join(doc.Annotations, " "))
	}
	return strings.Join(parts, " ")
}
