// Package entity defines the entities and errors shared by every layer of the
// shortener: the URL record, its access statistics, the health snapshot and the
// sentinel errors that adapters translate their failures into.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrOriginalURLExists is returned when another record already maps the same original URL.
	ErrOriginalURLExists = errors.New("original url exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrInvalidURL is returned when the original URL is rejected before any storage work is done.
	ErrInvalidURL = errors.New("invalid url")
	// ErrAllocationExhausted is returned when no free short code was found within the attempt bound.
	ErrAllocationExhausted = errors.New("short code allocation exhausted")
	// ErrCacheMiss is returned by caches when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	URLStats              // URLStats contains statistics about the URL.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
	UpdatedAt   time.Time // UpdatedAt is the timestamp of the last access or modification.
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	AccessCount int64 // AccessCount is the number of times the shortened URL has been accessed.
}
