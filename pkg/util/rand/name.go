// Package rand generates short human-readable identifiers, used as default
// broker client IDs so concurrent instances stay distinguishable in broker
// logs.
package rand

import (
	mrand "math/rand"
)

var adjectives = []string{
	"agile", "brave", "calm", "daring", "eager",
	"fancy", "gentle", "happy", "jolly", "keen",
	"lively", "mighty", "nimble", "quick", "radiant",
	"spirited", "steady", "trusty", "vivid", "wise",
}

var birds = []string{
	"albatross", "bluebird", "canary", "dove", "eagle",
	"falcon", "goldfinch", "hawk", "ibis", "jay",
	"kestrel", "lark", "magpie", "nuthatch", "oriole",
	"pelican", "quail", "robin", "sparrow", "wren",
}

// NewName returns an adjective-bird pair like "brave-falcon". Collisions are
// possible; callers needing uniqueness should add their own suffix.
func NewName() string {
	adj := adjectives[mrand.Intn(len(adjectives))]
	bird := birds[mrand.Intn(len(birds))]
	return adj + "-" + bird
}
