// Package random derives reproducible, independent random streams for the
// transport workers.
//
// A run has one master seed. Each worker owns a math/rand generator created
// with NewStream(master, worker) and reseeds it with DeriveSeed(master, event)
// before every event, so the result of a run depends on the seed only and no
// generator is ever shared between goroutines.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random master seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// DeriveSeed mixes the master seed and a stream index with the SplitMix64
// finalizer, so neighbouring streams are decorrelated.
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// NewStream returns the generator of the given stream.
func NewStream(master int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(master, stream)))
}
