package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Spreadsheet backends and caches
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
//   - ErrNotFound: spreadsheet, worksheet or cached entry does not exist
//   - ErrRateLimited: the backend refused the call because of quota; retryable
//   - ErrUnauthorized: credentials rejected or missing permissions
//   - ErrUnavailable: backend temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)
