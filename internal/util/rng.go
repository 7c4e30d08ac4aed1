package util

import "math/rand"

// New returns a generator for seed. Zero is mapped to 1 so an unset seed
// still gives a fixed stream.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = 1
	}
	src := rand.NewSource(seed)
	return rand.New(src)
}

// RunSeed derives the seed of run i in a batch. It depends only on the run
// index, never on which worker picks the run up.
func RunSeed(base int64, i int) int64 {
	return base + int64(i)*7919
}
