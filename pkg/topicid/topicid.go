// Package topicid issues the fixed-length numeric identifiers that name
// dashboards and their MQTT topic namespaces.
package topicid

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Length is the exact number of digits in every identifier.
const Length = 15

const (
	// maxAttempts bounds collision retries before falling back to a purely
	// random identifier.
	maxAttempts = 5

	// defaultCapacity bounds the in-process record of issued identifiers.
	// Older entries are pruned oldest-first, so the duplicate check is
	// best-effort over the process lifetime, not exact.
	defaultCapacity = 5000
)

var idPattern = regexp.MustCompile(`^[0-9]{15}$`)

// Validate reports whether id has the 15-digit shape. It does not check
// that the identifier was ever issued.
func Validate(id string) bool {
	return idPattern.MatchString(id)
}

// Generator issues identifiers with a bounded de-duplication window.
// The zero value is not usable; call NewGenerator.
type Generator struct {
	mu       sync.Mutex
	issued   map[string]struct{}
	order    []string
	capacity int
}

// NewGenerator returns a Generator with the default de-duplication capacity.
func NewGenerator() *Generator {
	return &Generator{
		issued:   make(map[string]struct{}, defaultCapacity),
		capacity: defaultCapacity,
	}
}

// Generate returns a new 15-digit identifier. It never fails: on collision
// it retries with larger random suffixes, and after maxAttempts it degrades
// to a purely random digit string without rechecking.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		id := candidate(ts, attempt)
		if _, dup := g.issued[id]; !dup {
			g.record(id)
			return id
		}
	}

	// Exhausted: weaker uniqueness guarantee, by contract.
	id := randomDigits(Length)
	g.record(id)
	return id
}

// candidate builds a 15-digit identifier from a timestamp prefix and a random
// suffix. Each attempt trades one more timestamp digit for one more random
// digit, so retries sample a genuinely larger space.
func candidate(ts string, attempt int) string {
	suffix := Length - len(ts) + attempt
	if suffix < 1 {
		suffix = 1
	}
	if suffix > Length {
		suffix = Length
	}

	prefix := ts
	if len(prefix) > Length-suffix {
		prefix = prefix[:Length-suffix]
	}
	return prefix + randomDigits(Length-len(prefix))
}

func (g *Generator) record(id string) {
	g.issued[id] = struct{}{}
	g.order = append(g.order, id)
	for len(g.order) > g.capacity {
		delete(g.issued, g.order[0])
		g.order = g.order[1:]
	}
}

func randomDigits(n int) string {
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand only fails if the platform entropy source is
			// broken; degrade to the current nanosecond instead of erroring.
			b[i] = byte('0' + time.Now().Nanosecond()%10)
			continue
		}
		b[i] = byte('0' + v.Int64())
	}
	return string(b)
}
