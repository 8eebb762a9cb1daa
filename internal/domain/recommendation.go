package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the review state of a recommendation.
type Status string

const (
	StatusUnread    Status = "unread"
	StatusConfirmed Status = "confirmed"
	StatusDismissed Status = "dismissed"
)

// ParseStatus maps a case-insensitive status name to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusUnread, StatusConfirmed, StatusDismissed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusUnread || s == StatusConfirmed || s == StatusDismissed
}

// CanTransitionTo reports whether a record in status s may move to next.
// Only unread records change state; confirmed and dismissed are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusUnread && (next == StatusConfirmed || next == StatusDismissed)
}

// Category buckets a recommendation by score.
type Category string

const (
	CategoryHighlyRelevant     Category = "highly_relevant"
	CategoryRelevant           Category = "relevant"
	CategoryModeratelyRelevant Category = "moderately_relevant"
)

// ParseCategory maps a category name to a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryHighlyRelevant, CategoryRelevant, CategoryModeratelyRelevant:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// CategoryForScore returns highly_relevant for >= 0.7, relevant for >= 0.5,
// moderately_relevant otherwise.
func CategoryForScore(score float64) Category {
	switch {
	case score >= 0.7:
		return CategoryHighlyRelevant
	case score >= 0.5:
		return CategoryRelevant
	default:
		return CategoryModeratelyRelevant
	}
}

// KeywordScore is min(1, 0.5 + 0.1*matches). Computed in tenths to keep
// category boundaries exact.
func KeywordScore(matches int) float64 {
	if matches < 0 {
		matches = 0
	}
	tenths := 5 + matches
	if tenths > 10 {
		tenths = 10
	}
	return float64(tenths) / 10
}

// Recommendation is a persisted, reviewable suggestion. (JournalID, ExternalID) is unique.
type Recommendation struct {
	ID              int64
	JournalID       int64
	JournalName     string
	Title           string
	Abstract        string
	Authors         []string
	Year            *int
	ExternalID      string
	Score           float64
	Category        Category
	Reason          string
	MatchedKeywords string
	Status          Status
	FetchedAt       time.Time
	ReviewedAt      *time.Time
}

// RecommendationFilter narrows the review queue. Zero values mean no filter.
type RecommendationFilter struct {
	Status   Status
	Category Category
	Limit    int
}

// PaperFilter is the newest-first paper listing used by the web client.
type PaperFilter struct {
	JournalID int64
	Keyword   string
	Limit     int
	Offset    int
}

// PaperPage is one page of the paper listing.
type PaperPage struct {
	Papers []Recommendation
	Total  int
	Limit  int
	Offset int
}

// HasMore reports whether rows exist past this page.
func (p PaperPage) HasMore() bool {
	return p.Offset+len(p.Papers) < p.Total
}

// Statistics aggregates the recommendation cache.
type Statistics struct {
	Total         int
	Unread        int
	ByStatus      map[Status]int
	ByCategory    map[Category]int
	ByJournal     []JournalCount
	LastFetchedAt *time.Time
}

type JournalCount struct {
	Name  string
	Count int
}

// Explanation describes why a recommendation relates to the researcher's library.
type Explanation struct {
	RecommendationID int64
	ProfileReady     bool
	Similarity       float64
	TopTerms         []TermWeight
	CommonKeywords   []string
}

type TermWeight struct {
	Term   string
	Weight float64
}
