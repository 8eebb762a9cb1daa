package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the declared polling cadence of a journal. It is informational only.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency accepts daily, weekly or monthly (case-insensitive). Empty means weekly.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FrequencyWeekly, nil
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown update frequency %q", ErrInvalidJournal, s)
	}
}

// Journal is a target journal polled for new candidate articles.
type Journal struct {
	ID          int64
	Name        string
	ExternalID  *string // ISSN or other catalog identifier
	Keywords    []string
	Frequency   Frequency
	Active      bool
	LastFetched *time.Time
	AddedAt     time.Time
}

// NewJournal carries the caller-supplied fields of a registry insert.
type NewJournal struct {
	Name       string
	ExternalID string
	Keywords   []string
	Frequency  string
}

// JournalInfo is catalog metadata resolved from an external identifier.
type JournalInfo struct {
	Title     string
	ISSN      string
	Publisher string
}

// JournalSelector picks the journals of a pipeline run. Zero JournalID means all active journals.
type JournalSelector struct {
	JournalID int64
}

// ParseKeywords splits a comma-separated keyword string, trimming blanks.
func ParseKeywords(s string) []string {
	return NormalizeKeywords(strings.Split(s, ","))
}

// NormalizeKeywords trims every keyword and drops empty ones, keeping order.
func NormalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
