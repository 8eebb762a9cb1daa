package domain

import "errors"

var (
	ErrJournalNotFound        = errors.New("journal not found")
	ErrDuplicateJournal       = errors.New("journal already registered")
	ErrInvalidJournal         = errors.New("invalid journal")
	ErrRecommendationNotFound = errors.New("recommendation not found")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrProfileNotBuilt        = errors.New("interest profile not built")
)
