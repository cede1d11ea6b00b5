package offload

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces the unique suffix appended to observation file names.
// It is injectable so tests can assert exact file names deterministically.
type IDGenerator interface {
	Next() string
}

// UUIDGenerator is the production generator.
type UUIDGenerator struct{}

// Next returns the short form of a fresh UUID.
func (UUIDGenerator) Next() string {
	return uuid.NewString()[:8]
}

// Sequence is a deterministic generator for tests: 000001, 000002, ...
// Safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// Next returns the next zero-padded sequence number.
func (s *Sequence) Next() string {
	return fmt.Sprintf("%06d", s.n.Add(1))
}
