package repository

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrBlobNotFound is returned when a blob key does not exist in the blob store.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrPageUnreachable is returned when a page cannot be fetched at all
	// (DNS failure, refused connection, timeout).
	ErrPageUnreachable = errors.New("page unreachable")

	// ErrImageFetch is returned when an image reference cannot be downloaded.
	ErrImageFetch = errors.New("image fetch failed")

	// ErrImageDecode is returned when downloaded bytes are not a recognised image.
	ErrImageDecode = errors.New("image decode failed")

	// ErrLockNotAcquired is returned when a lock could not be taken before the context expired.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
