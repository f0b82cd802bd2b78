package util

import "golang.org/x/exp/rand"

// NewRand returns a *rand.Rand seeded with seed. It must not be shared between goroutines.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed returns a seed for the i-th independent stream derived from base, so that parallel workers
// get reproducible but uncorrelated sources.
func DeriveSeed(base uint64, i int) uint64 {
	// splitmix64 finaliser
	z := base + uint64(i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
