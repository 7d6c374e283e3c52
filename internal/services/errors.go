package services

import "errors"

var (
	// ErrQuotaExceeded is returned when the daily free question limit is reached
	ErrQuotaExceeded = errors.New("daily question quota exceeded")

	// ErrInvalidCategory is returned for a category outside the known set
	ErrInvalidCategory = errors.New("invalid question category")

	// ErrSessionNotFound is returned when no session exists for the user
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyGeneration is returned when the provider answers with no content
	ErrEmptyGeneration = errors.New("no content in generation response")
)
