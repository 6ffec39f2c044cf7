// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

// Package rng provides reproducible pseudorandom streams for combat
// resolution. Streams are keyed by a 32-bit seed and are a pure function of
// seed plus call order, so identical inputs replay identical outcomes across
// processes and platforms. Wall-clock time never feeds an authoritative roll.
package rng

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"math/rand"
)

// Stream is a deterministic pseudorandom stream. It is not safe for
// concurrent use; each event derives its own Stream from a combined seed.
type Stream struct {
	seed uint32
	r    *rand.Rand
}

// New creates a Stream from a 32-bit seed.
func New(seed uint32) *Stream {
	return &Stream{
		seed: seed,
		r:    rand.New(rand.NewSource(int64(seed))), //nolint:gosec // determinism is the point
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint32 {
	return s.seed
}

// Float01 returns the next value in [0, 1).
func (s *Stream) Float01() float64 {
	return s.r.Float64()
}

// IntBetween returns the next value in [min, max). When the range is empty
// it returns min.
func (s *Stream) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.r.Intn(max-min)
}

// Combine mixes two stable identifiers and a monotonic event counter into a
// seed, so independent event streams (one swing, one roll) derive unrelated
// sub-seeds without sharing a global stream. A zero hash is bumped to 1 so a
// zero seed can keep its "no provenance" meaning.
func Combine(a, b string, n uint64) uint32 {
	h := fnv.New32a()
	io.WriteString(h, a) //nolint:errcheck // fnv never fails
	h.Write([]byte{0})
	io.WriteString(h, b) //nolint:errcheck // fnv never fails
	h.Write([]byte{0})
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	h.Write(buf[:])

	seed := h.Sum32()
	if seed == 0 {
		seed = 1
	}
	return seed
}

// SeedFrom hashes a root seed and a subsystem label into a stream seed.
// Distinct labels under one root produce independent streams.
func SeedFrom(root, label string) uint32 {
	return Combine(root, label, 0)
}
