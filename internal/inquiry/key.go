package inquiry

import (
	"strconv"
	"sync"
	"time"
)

// Step names a wizard transition. It is the typed half of every callback.
type Step string

const (
	StepStart  Step = "start"
	StepType   Step = "type"
	StepSize   Step = "size"
	StepForm   Step = "form"
	StepRetry  Step = "retry"
	StepCancel Step = "cancel"
)

// Action is a parsed user response addressed to one session.
type Action struct {
	Step  Step
	Key   string
	Value string
}

// KeyGenerator derives session keys from the initiator and the creation time.
// Keys are strictly increasing per generator so none is ever handed out twice.
type KeyGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewKeyGenerator returns a generator reading the wall clock.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// Next returns "<base36(initiator)>-<base36(nanos)>".
func (g *KeyGenerator) Next(initiatorID int64) string {
	g.mu.Lock()
	ts := g.now().UnixNano()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()
	return strconv.FormatInt(initiatorID, 36) + "-" + strconv.FormatInt(ts, 36)
}
