package topicid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShapeAndUniqueness(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]struct{})

	const n = 3000
	for i := 0; i < n; i++ {
		id := g.Generate()
		require.Len(t, id, Length)
		require.True(t, Validate(id), "generated id %q must validate", id)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q after %d generations", id, i)
		seen[id] = struct{}{}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid 15 digits", "123456789012345", true},
		{"too short", "12345678901234", false},
		{"too long", "1234567890123456", false},
		{"empty", "", false},
		{"letters", "12345678901234a", false},
		{"spaces", "12345678901234 ", false},
		{"never issued but well-formed", "999999999999999", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.id))
		})
	}
}

func TestCandidateWidensRandomSuffixPerAttempt(t *testing.T) {
	ts := "1700000000000" // 13 digits, the shape of a millisecond timestamp

	for attempt := 0; attempt < maxAttempts; attempt++ {
		id := candidate(ts, attempt)
		require.Len(t, id, Length)
		require.True(t, Validate(id))

		// each attempt keeps one fewer timestamp digit, leaving more of
		// the identifier to the random suffix
		wantPrefix := ts[:len(ts)-attempt]
		assert.Equal(t, wantPrefix, id[:len(wantPrefix)], "attempt %d", attempt)
	}
}

func TestIssuedWindowIsPruned(t *testing.T) {
	g := NewGenerator()
	g.capacity = 10

	for i := 0; i < 100; i++ {
		g.Generate()
	}

	assert.LessOrEqual(t, len(g.issued), 10)
	assert.LessOrEqual(t, len(g.order), 10)
}
