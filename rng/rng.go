/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rng provides the small seeded generator used for drawing pairs and
// animating runes. A seed string is expanded with the xmur3 hash into four
// words, which then drive an sfc32 stream. The same seed always yields the
// same sequence of draws.
package rng

import (
	"errors"
	"math"
	"math/bits"
	"time"
	"unicode/utf16"
)

// SeedPhrase prefixes every default seed.
const SeedPhrase = "Odin, singularity, and garden elven "

var ErrEmpty = errors.New("cannot pick from an empty list")

// Hash is the xmur3 string hash. Every call to Next advances the internal
// state, so repeated calls yield decorrelated words from one seed.
type Hash struct {
	h uint32
}

func NewHash(seed string) *Hash {
	units := utf16.Encode([]rune(seed))

	h := uint32(1779033703) ^ uint32(len(units))
	for _, u := range units {
		h = (h ^ uint32(u)) * 3432918353
		h = bits.RotateLeft32(h, 13)
	}

	return &Hash{h: h}
}

func (x *Hash) Next() uint32 {
	h := x.h
	h = (h ^ h>>16) * 2246822507
	h = (h ^ h>>13) * 3266489909
	h ^= h >> 16
	x.h = h

	return h
}

// RNG is an sfc32 generator. It is not safe for concurrent use.
type RNG struct {
	a, b, c, d uint32
}

func New(a, b, c, d uint32) *RNG {
	return &RNG{a: a, b: b, c: c, d: d}
}

// FromSeed expands seed into four words and returns a generator over them.
func FromSeed(seed string) *RNG {
	h := NewHash(seed)

	return New(h.Next(), h.Next(), h.Next(), h.Next())
}

// DefaultSeed returns the seed phrase followed by now as an ISO-8601 UTC
// timestamp with millisecond precision.
func DefaultSeed(now time.Time) string {
	return SeedPhrase + now.UTC().Format("2006-01-02T15:04:05.000Z")
}

func (r *RNG) Uint32() uint32 {
	t := r.a + r.b + r.d
	r.d++
	r.a = r.b ^ r.b<<9
	r.b = r.c + r.c<<3
	r.c = bits.RotateLeft32(r.c, 21) + t

	return t
}

// Uint64 joins two draws, which lets an *RNG act as a math/rand/v2 Source.
func (r *RNG) Uint64() uint64 {
	return uint64(r.Uint32())<<32 | uint64(r.Uint32())
}

// Float64 returns a value in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.Uint32()) / (math.MaxUint32 + 1)
}

// Intn returns floor(Float64() * n). It panics if n <= 0.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to Intn")
	}

	return int(r.Float64() * float64(n))
}

// Pick returns one element of items chosen uniformly.
func Pick[T any](r *RNG, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmpty
	}

	return items[r.Intn(len(items))], nil
}
