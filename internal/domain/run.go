package domain

import "time"

// RunStats holds statistics about one fetch-and-recommend run.
type RunStats struct {
	RunID             string
	Fetched           int
	Excluded          int
	Matched           int
	Duplicates        int
	Recommended       int
	Published         int
	JournalsProcessed int
	JournalErrors     int
	Message           string // set when the run had nothing to do
	Duration          time.Duration
}

// ProfileStatus reports the state of the cached interest profile.
type ProfileStatus struct {
	Loaded         bool
	Ready          bool
	Documents      int
	VocabularySize int
}
