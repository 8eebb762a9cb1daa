package httpapi

import (
	"encoding/json"
	"time"

	"paper_recommender/internal/domain"
)

type journalResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	ISSN        *string    `json:"issn"`
	Keywords    []string   `json:"keywords"`
	Frequency   string     `json:"update_frequency"`
	IsActive    bool       `json:"is_active"`
	LastFetched *time.Time `json:"last_fetched"`
	AddedAt     time.Time  `json:"added_at"`
}

func toJournalResponse(j domain.Journal) journalResponse {
	kw := j.Keywords
	if kw == nil {
		kw = []string{}
	}
	return journalResponse{
		ID:          j.ID,
		Name:        j.Name,
		ISSN:        j.ExternalID,
		Keywords:    kw,
		Frequency:   string(j.Frequency),
		IsActive:    j.Active,
		LastFetched: j.LastFetched,
		AddedAt:     j.AddedAt,
	}
}

type paperResponse struct {
	ID              int64      `json:"id"`
	JournalID       int64      `json:"journal_id"`
	JournalName     string     `json:"journal_name"`
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract"`
	Authors         []string   `json:"authors"`
	Year            *int       `json:"year"`
	DOI             string     `json:"doi"`
	Score           float64    `json:"score"`
	Category        string     `json:"category"`
	Reason          string     `json:"reason"`
	MatchedKeywords string     `json:"matched_keywords"`
	Status          string     `json:"status"`
	FetchedAt       time.Time  `json:"fetched_at"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
}

func toPaperResponse(r domain.Recommendation) paperResponse {
	authors := r.Authors
	if authors == nil {
		authors = []string{}
	}
	return paperResponse{
		ID:              r.ID,
		JournalID:       r.JournalID,
		JournalName:     r.JournalName,
		Title:           r.Title,
		Abstract:        r.Abstract,
		Authors:         authors,
		Year:            r.Year,
		DOI:             r.ExternalID,
		Score:           r.Score,
		Category:        string(r.Category),
		Reason:          r.Reason,
		MatchedKeywords: r.MatchedKeywords,
		Status:          string(r.Status),
		FetchedAt:       r.FetchedAt,
		ReviewedAt:      r.ReviewedAt,
	}
}

func toPaperResponses(recs []domain.Recommendation) []paperResponse {
	out := make([]paperResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, toPaperResponse(r))
	}
	return out
}

type paginationResponse struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type journalCountResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type statsResponse struct {
	Total      int                    `json:"total"`
	Unread     int                    `json:"unread"`
	Confirmed  int                    `json:"confirmed"`
	Dismissed  int                    `json:"dismissed"`
	ByCategory map[string]int         `json:"by_category"`
	ByJournal  []journalCountResponse `json:"by_journal"`
	LastUpdate *time.Time             `json:"last_update"`
}

func toStatsResponse(st *domain.Statistics) statsResponse {
	out := statsResponse{
		Total:      st.Total,
		Unread:     st.Unread,
		Confirmed:  st.ByStatus[domain.StatusConfirmed],
		Dismissed:  st.ByStatus[domain.StatusDismissed],
		ByCategory: make(map[string]int, len(st.ByCategory)),
		ByJournal:  make([]journalCountResponse, 0, len(st.ByJournal)),
		LastUpdate: st.LastFetchedAt,
	}
	for c, n := range st.ByCategory {
		out.ByCategory[string(c)] = n
	}
	for _, j := range st.ByJournal {
		out.ByJournal = append(out.ByJournal, journalCountResponse{Name: j.Name, Count: j.Count})
	}
	return out
}

type runStatsResponse struct {
	RunID             string `json:"run_id"`
	Fetched           int    `json:"fetched"`
	Excluded          int    `json:"excluded"`
	Matched           int    `json:"matched"`
	Duplicates        int    `json:"duplicates"`
	Recommended       int    `json:"recommended"`
	Published         int    `json:"published"`
	JournalsProcessed int    `json:"journals_processed"`
	JournalErrors     int    `json:"journal_errors"`
	Message           string `json:"message,omitempty"`
	DurationMS        int64  `json:"duration_ms"`
}

func toRunStatsResponse(st *domain.RunStats) runStatsResponse {
	return runStatsResponse{
		RunID:             st.RunID,
		Fetched:           st.Fetched,
		Excluded:          st.Excluded,
		Matched:           st.Matched,
		Duplicates:        st.Duplicates,
		Recommended:       st.Recommended,
		Published:         st.Published,
		JournalsProcessed: st.JournalsProcessed,
		JournalErrors:     st.JournalErrors,
		Message:           st.Message,
		DurationMS:        st.Duration.Milliseconds(),
	}
}

type termWeightResponse struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

type explanationResponse struct {
	RecommendationID int64                `json:"recommendation_id"`
	ProfileReady     bool                 `json:"profile_ready"`
	Similarity       float64              `json:"similarity"`
	TopTerms         []termWeightResponse `json:"top_terms"`
	CommonKeywords   []string             `json:"common_keywords"`
}

func toExplanationResponse(e *domain.Explanation) explanationResponse {
	out := explanationResponse{
		RecommendationID: e.RecommendationID,
		ProfileReady:     e.ProfileReady,
		Similarity:       e.Similarity,
		TopTerms:         make([]termWeightResponse, 0, len(e.TopTerms)),
		CommonKeywords:   e.CommonKeywords,
	}
	if out.CommonKeywords == nil {
		out.CommonKeywords = []string{}
	}
	for _, t := range e.TopTerms {
		out.TopTerms = append(out.TopTerms, termWeightResponse{Term: t.Term, Weight: t.Weight})
	}
	return out
}

type candidateResponse struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Authors  []string `json:"authors"`
	Year     *int     `json:"year"`
	DOI      string   `json:"doi"`
	Journal  string   `json:"journal"`
}

// keywordList accepts either a JSON array or a comma-separated string.
type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = domain.NormalizeKeywords(list)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = domain.ParseKeywords(s)
	return nil
}

type addJournalRequest struct {
	Name      string      `json:"name"`
	ISSN      string      `json:"issn"`
	Keywords  keywordList `json:"keywords"`
	Frequency string      `json:"update_frequency"`
}

type updateJournalRequest struct {
	IsActive *bool       `json:"is_active"`
	Keywords keywordList `json:"keywords"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type refreshRequest struct {
	JournalID      int64    `json:"journal_id"`
	DaysBack       *int     `json:"days_back"`
	MinScore       *float64 `json:"min_score"`
	RebuildProfile bool     `json:"rebuild_profile"`
}

type cleanupRequest struct {
	Days int `json:"days"`
}
