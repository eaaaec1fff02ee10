// Package pathstore keeps the last successfully computed path.
//
// A Store holds at most one Record. Save replaces it; Load returns it or
// ErrEmpty. Implementations are safe for concurrent use.
package pathstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pdrpinto/roboroute"
)

var (
	// ErrEmpty is returned by Load before the first Save.
	ErrEmpty = errors.New("no path computed")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("path store closed")
)

// Record is one computed path and the request that produced it.
type Record struct {
	ID         uuid.UUID               `json:"id"`
	Start      roboroute.Cell          `json:"start"`
	Goal       roboroute.Cell          `json:"goal"`
	Path       []roboroute.Cell        `json:"path"`
	Heuristic  roboroute.HeuristicName `json:"heuristic"`
	ComputedAt time.Time               `json:"computed_at"`
}

// NewRecord stamps a result with a fresh id and the current time.
func NewRecord(start, goal roboroute.Cell, result roboroute.PathResult) Record {
	return Record{
		ID:         uuid.New(),
		Start:      start,
		Goal:       goal,
		Path:       result.Path,
		Heuristic:  result.Heuristic,
		ComputedAt: time.Now().UTC(),
	}
}

// Store is a single-slot path cache.
type Store interface {
	Save(ctx context.Context, record Record) error
	Load(ctx context.Context) (Record, error)
	Close() error
}
