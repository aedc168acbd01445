// Package names generates the auto-assigned display names given to freshly
// minted audience identities.
package names

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Brave", "Bright", "Calm", "Clever", "Curious", "Daring", "Eager",
	"Gentle", "Happy", "Jolly", "Keen", "Lively", "Mellow", "Nimble",
	"Quick", "Quiet", "Silent", "Swift", "Witty", "Zesty",
}

var nouns = []string{
	"Badger", "Falcon", "Fox", "Heron", "Lynx", "Marmot", "Otter",
	"Panda", "Puffin", "Raven", "Robin", "Salmon", "Sparrow", "Stork",
	"Swan", "Tiger", "Walrus", "Weasel", "Wolf", "Wren",
}

// Random returns a name like "CleverOtter".
func Random() string {
	return adjectives[randIndex(len(adjectives))] + nouns[randIndex(len(nouns))]
}

// WithSuffix appends a random numeric suffix, used as the fallback once the
// bounded collision-retry loop is exhausted. "CleverOtter" -> "CleverOtter4821".
func WithSuffix(name string) string {
	return fmt.Sprintf("%s%04d", name, randIndex(10000))
}

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// a fixed index still yields a valid (if less varied) name.
		return 0
	}
	return int(v.Int64())
}
