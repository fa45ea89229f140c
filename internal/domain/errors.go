package domain

import "errors"

var (
	// ErrMakeNotFound is returned when no catalog vehicle carries the requested make
	ErrMakeNotFound = errors.New("make not found in catalog")

	// ErrInvalidQuery is returned when recommendation parameters are invalid
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrCatalogEmpty is returned when there is no catalog to search
	ErrCatalogEmpty = errors.New("catalog is empty")

	// ErrMissingColumns is returned when a catalog file lacks required columns
	ErrMissingColumns = errors.New("catalog is missing required columns")

	// ErrInvalidCatalog is returned when a catalog file cannot be parsed
	ErrInvalidCatalog = errors.New("invalid catalog data")

	// ErrCatalogNotFound is returned when a remote catalog does not exist
	ErrCatalogNotFound = errors.New("catalog not found")

	// ErrRemoteCatalogFailure is returned when fetching a remote catalog fails
	ErrRemoteCatalogFailure = errors.New("remote catalog request failed")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
