package service

import (
	"context"
	"fmt"

	"paper_recommender/internal/domain"
	"paper_recommender/internal/profile"
)

// ensureProfile returns the cached interest profile, building it on first use.
// A nil result means the profile is unavailable. Build errors are not cached
// so the next call retries; an empty library is cached until Refresh.
// The corpus is loaded under buildMu only, so ProfileStatus never waits on it.
func (s *RecommendService) ensureProfile(ctx context.Context) *profile.Profile {
	if p, ok := s.cachedProfile(); ok {
		return p
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if p, ok := s.cachedProfile(); ok {
		return p
	}
	gen := s.profileGeneration()

	if s.library == nil {
		s.storeProfile(gen, nil)
		return nil
	}

	corpus, err := s.library.Corpus(ctx)
	if err != nil {
		s.logger.Warn("load library corpus failed", "error", err)
		return nil
	}

	p, err := s.builder.Build(corpus)
	if err != nil {
		s.logger.Warn("build interest profile failed", "documents", len(corpus), "error", err)
		return nil
	}

	s.storeProfile(gen, p)
	if p == nil {
		s.logger.Info("library is empty, interest profile disabled")
		return nil
	}
	s.logger.Info("interest profile built",
		"documents", p.Documents(),
		"vocabulary", p.VocabularySize(),
	)

	return p
}

func (s *RecommendService) cachedProfile() (*profile.Profile, bool) {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	return s.profile, s.profileLoaded
}

func (s *RecommendService) profileGeneration() uint64 {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	return s.profileGen
}

// storeProfile caches p unless Refresh ran after gen was read.
func (s *RecommendService) storeProfile(gen uint64, p *profile.Profile) {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	if gen != s.profileGen {
		return
	}
	s.profile = p
	s.profileLoaded = true
}

// Refresh drops the cached interest profile; the next run rebuilds it.
func (s *RecommendService) Refresh() {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	s.profile = nil
	s.profileLoaded = false
	s.profileGen++
}

// ProfileStatus reports the cached profile without triggering a build.
func (s *RecommendService) ProfileStatus() domain.ProfileStatus {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	return domain.ProfileStatus{
		Loaded:         s.profileLoaded,
		Ready:          s.profile != nil,
		Documents:      s.profile.Documents(),
		VocabularySize: s.profile.VocabularySize(),
	}
}

// Explain relates a stored recommendation to the researcher's library.
func (s *RecommendService) Explain(ctx context.Context, id int64, k int) (*domain.Explanation, error) {
	rec, err := s.recs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}

	exp := &domain.Explanation{RecommendationID: rec.ID}

	p := s.ensureProfile(ctx)
	if p == nil {
		return exp, nil
	}

	text := domain.Candidate{Title: rec.Title, Abstract: rec.Abstract}.Text()
	exp.ProfileReady = true
	exp.Similarity = p.Score(text)
	exp.TopTerms = p.Explain(text, k)
	exp.CommonKeywords = p.CommonKeywords(text, k)

	return exp, nil
}
