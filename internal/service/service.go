package service

import (
	"log/slog"
	"sync"
	"time"

	"paper_recommender/internal/config"
	"paper_recommender/internal/keywords"
	"paper_recommender/internal/profile"
)

// Deps are the collaborators of RecommendService. Publisher may be nil.
type Deps struct {
	Journals        JournalStore
	Recommendations RecommendationStore
	Source          Source
	Library         Library
	TxManager       TransactionManager
	Publisher       Publisher
	Vocabulary      *keywords.Vocabulary
}

// RecommendService runs the recommendation pipeline and owns the journal
// registry and the review queue.
type RecommendService struct {
	journals  JournalStore
	recs      RecommendationStore
	source    Source
	library   Library
	txManager TransactionManager
	publisher Publisher
	vocab     *keywords.Vocabulary
	builder   *profile.Builder
	logger    *slog.Logger
	config    config.RecommendConfig
	now       func() time.Time

	// runMu serializes pipeline runs.
	runMu sync.Mutex

	// buildMu serializes profile builds; profileMu guards the cached state.
	buildMu       sync.Mutex
	profileMu     sync.Mutex
	profile       *profile.Profile
	profileLoaded bool
	profileGen    uint64
}

func NewRecommendService(deps Deps, logger *slog.Logger, cfg config.RecommendConfig) *RecommendService {
	return &RecommendService{
		journals:  deps.Journals,
		recs:      deps.Recommendations,
		source:    deps.Source,
		library:   deps.Library,
		txManager: deps.TxManager,
		publisher: deps.Publisher,
		vocab:     deps.Vocabulary,
		builder:   profile.NewBuilder(cfg.MaxFeatures),
		logger:    logger.With("component", "recommender", "source", deps.Source.ID()),
		config:    cfg,
		now:       time.Now,
	}
}
