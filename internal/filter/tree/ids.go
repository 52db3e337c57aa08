package tree

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator issues node ids for one editing session. Ids combine a
// monotonically increasing counter with a short random suffix.
type IDGenerator struct {
	mu     sync.Mutex
	next   uint64
	suffix func() string
}

// NewIDGenerator creates a generator whose counter starts at start.
func NewIDGenerator(start uint64) *IDGenerator {
	return &IDGenerator{next: start, suffix: randomSuffix}
}

// NewDeterministicIDGenerator creates a generator without random suffixes,
// producing "rule-1", "group-2", ...
func NewDeterministicIDGenerator() *IDGenerator {
	return &IDGenerator{next: 1}
}

// RuleID returns a new rule id.
func (g *IDGenerator) RuleID() string {
	return g.newID("rule")
}

// GroupID returns a new group id.
func (g *IDGenerator) GroupID() string {
	return g.newID("group")
}

func (g *IDGenerator) newID(prefix string) string {
	g.mu.Lock()
	n := g.next
	g.next++
	g.mu.Unlock()

	if g.suffix == nil {
		return fmt.Sprintf("%s-%d", prefix, n)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, n, g.suffix())
}

func randomSuffix() string {
	return uuid.NewString()[:5]
}
