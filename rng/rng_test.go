/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rng

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKnownWords(t *testing.T) {
	tests := []struct {
		seed string
		want [4]uint32
	}{
		{"Odin, singularity, and garden elven 2026-10-19T12:00:00.000Z", [4]uint32{3770764929, 2416696817, 3595142241, 274969192}},
		{"", [4]uint32{167010153, 2610615433, 1495386444, 1351578270}},
		{"ᚠᚢᚦ", [4]uint32{810464533, 3546795958, 956249459, 2139804395}},
	}

	for _, tt := range tests {
		h := NewHash(tt.seed)
		got := [4]uint32{h.Next(), h.Next(), h.Next(), h.Next()}
		assert.Equal(t, tt.want, got, "seed %q", tt.seed)
	}
}

func TestStreamKnownValues(t *testing.T) {
	tests := []struct {
		seed string
		want []uint32
	}{
		{"Odin, singularity, and garden elven 2026-10-19T12:00:00.000Z", []uint32{2167463642, 547985859, 755503149, 717328317, 2132204961}},
		{"", []uint32{4129203856, 552815828, 2946424669, 2283456551, 3032768388}},
		{"ᚠᚢᚦ", []uint32{2202097590, 2642171821, 800194164, 4280717821, 3032726639}},
	}

	for _, tt := range tests {
		r := FromSeed(tt.seed)
		for i, want := range tt.want {
			assert.Equal(t, want, r.Uint32(), "seed %q draw %d", tt.seed, i)
		}
	}
}

func TestDefaultSeed(t *testing.T) {
	now := time.Date(2026, 10, 19, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	assert.Equal(t, "Odin, singularity, and garden elven 2026-10-19T12:00:00.000Z", DefaultSeed(now))
}

func TestDeterminism(t *testing.T) {
	a := FromSeed("same seed")
	b := FromSeed("same seed")

	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
}

func TestFloat64Range(t *testing.T) {
	r := FromSeed("range")

	for i := 0; i < 100000; i++ {
		f := r.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}

	assert.Less(t, New(0, 0, 0, 0xFFFFFFFF).Float64(), 1.0)
}

func TestFloat64Uniform(t *testing.T) {
	const (
		buckets = 20
		samples = 200000
	)

	r := FromSeed("chi-square")
	counts := make([]int, buckets)
	for i := 0; i < samples; i++ {
		counts[int(r.Float64()*buckets)]++
	}

	expected := float64(samples) / buckets
	chi := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chi += d * d / expected
	}

	// 19 degrees of freedom, p = 0.001
	assert.Less(t, chi, 43.82)
}

func TestPickUniform(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}
	counts := make([]int, len(items))

	r := FromSeed("pick")
	const samples = 70000
	for i := 0; i < samples; i++ {
		v, err := Pick(r, items)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, len(items))
		counts[v]++
	}

	expected := samples / len(items)
	for i, c := range counts {
		assert.InDelta(t, expected, c, float64(expected)*0.05, "index %d", i)
	}
}

func TestPickEmpty(t *testing.T) {
	_, err := Pick(FromSeed("empty"), []string{})

	assert.ErrorIs(t, err, ErrEmpty)
}

func TestIntnPanics(t *testing.T) {
	assert.Panics(t, func() { FromSeed("x").Intn(0) })
}

func TestSource(t *testing.T) {
	var _ rand.Source = FromSeed("source")

	a := rand.New(FromSeed("source"))
	b := rand.New(FromSeed("source"))
	assert.Equal(t, a.IntN(1000), b.IntN(1000))
}
