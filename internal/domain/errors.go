package domain

import "errors"

var (
	// ErrProductNotFound is returned when a catalog product cannot be found
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidQuery is returned when a candidate query has neither or both of UPC and name terms
	ErrInvalidQuery = errors.New("invalid candidate query")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStoreUnavailable is returned when the product store cannot be reached
	ErrStoreUnavailable = errors.New("product store unavailable")

	// ErrRecallFeedFailure is returned when the recall feed request fails
	ErrRecallFeedFailure = errors.New("recall feed request failed")

	// ErrBatchTooLarge is returned when a batch request exceeds the configured size
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)
