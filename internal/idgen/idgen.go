// Package idgen mints the opaque 64-bit trade identifiers the engine hands
// out. The spec treats the generator as an external collaborator: any
// algorithm giving process-lifetime uniqueness and 64-bit width is
// acceptable (§9). This one wraps the teacher's existing ID collaborator,
// oklog/ulid, rather than introducing a new one.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nholding/tradeflow/internal/domain"
)

// Generator mints TradeIDs. The zero value is not usable; construct with
// New.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    uint64
}

// New returns a ready-to-use Generator.
func New() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a fresh, process-unique TradeID. ULIDs are 128 bits
// (48-bit millisecond timestamp + 80 bits of monotonic-within-millisecond
// entropy); Next folds the high 64 bits — timestamp plus the top of the
// entropy stream — down to a uint64. Since ulid.Monotonic strictly
// increases its entropy for repeated calls within the same millisecond, the
// folded value is guaranteed non-decreasing for the duration of a single
// millisecond; across millisecond boundaries the timestamp component alone
// guarantees forward progress. A bump-on-collision guard under the mutex
// makes uniqueness absolute even if two consecutive folds ever coincided.
func (g *Generator) Next() domain.TradeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	v := binary.BigEndian.Uint64(id[:8])

	if v <= g.last {
		v = g.last + 1
	}
	g.last = v

	return domain.TradeID(v)
}
