package usecase

import "errors"

var (
	// ErrInvalidURL is returned when the submitted URL fails validation or its
	// page cannot be fetched at all.
	ErrInvalidURL = errors.New("invalid url")

	// ErrNotFound is returned when a requested image or address does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage is returned when the blob or record store fails.
	ErrStorage = errors.New("storage error")
)
