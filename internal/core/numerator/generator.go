package numerator

import (
	"context"
	"time"
)

// Generator allocates sequential document numbers.
//
// Numbers are partitioned by (prefix, year of at). Implementations must allocate
// atomically inside the caller's transaction so a rolled-back posting does not
// consume a number and two concurrent postings never receive the same one.
type Generator interface {
	// GetNextNumber returns the next formatted number, e.g. NCR-2025-007.
	GetNextNumber(ctx context.Context, cfg Config, at time.Time) (string, error)
}
