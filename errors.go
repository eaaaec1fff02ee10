package roboroute

import "errors"

var (
	// ErrInvalidInput is returned before any search work when the grid is
	// empty, ragged or holds unknown cell values, or an endpoint lies outside it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSearchTimedOut is the reason attached to ErrNoPath when the caller's
	// deadline expired mid-search.
	ErrSearchTimedOut = errors.New("search timed out")
)
