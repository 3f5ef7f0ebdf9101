// Package ring provides the generation of the NTT-enabling primes backing
// the moduli chain, along with the per-prime modular arithmetic
// precomputations consumed by the chain.
package ring

import (
	"errors"
	"fmt"
	"math/big"
)

// MaxPrimeBitSize is the largest supported bit-size for a single-word prime
// of the chain.
const MaxPrimeBitSize = 60

// MaxM is the exclusive upper bound on the order m of the cyclotomic group.
const MaxM = uint64(1) << MaxPrimeBitSize

// ErrOutOfPrimes is returned by PrimeGenerator.NextPrime when the search
// space for the configured bit-size is exhausted.
var ErrOutOfPrimes = errors.New("ran out of primes for this bit-size")

// IsPrime applies the Baillie-PSW test, which is deterministic for inputs
// below 2^64.
func IsPrime(x uint64) bool {
	return new(big.Int).SetUint64(x).ProbablyPrime(0)
}

// PrimeGenerator enumerates the primes p satisfying
//
//	(3/4)·2^bitSize <= p < 2^bitSize and p = 2^k·t·m + 1,
//
// with t odd and k as large as possible, so that Z/pZ has a primitive m-th
// root of unity of maximal 2-power order. Each call to NextPrime returns the
// next such prime in the search order (odd t increasing within the window of
// the current k, then k decreasing), hence successive outputs of a same
// generator are distinct.
type PrimeGenerator struct {
	bitSize, m uint64
	k          int
	t          uint64
}

// NewPrimeGenerator instantiates a new PrimeGenerator for primes of bitSize
// bits with p = 1 mod m. It returns an error if bitSize is not in
// [2, MaxPrimeBitSize] or if m is not in [1, MaxM).
func NewPrimeGenerator(bitSize, m uint64) (*PrimeGenerator, error) {

	if bitSize < 2 || bitSize > MaxPrimeBitSize {
		return nil, fmt.Errorf("cannot NewPrimeGenerator: bitSize must be in [2, %d] but is %d", MaxPrimeBitSize, bitSize)
	}

	if m == 0 || m >= MaxM {
		return nil, fmt.Errorf("cannot NewPrimeGenerator: m must be in [1, 2^%d) but is %d", MaxPrimeBitSize, m)
	}

	g := &PrimeGenerator{bitSize: bitSize, m: m}

	// Smallest k such that 2^{bitSize-2} < 2^k·m.
	for g.m<<uint(g.k) <= uint64(1)<<(bitSize-2) {
		g.k++
	}

	// With the above k the window holds fewer than four odd values of t,
	// so starting at t = 8 moves to the first searchable window on the
	// first call to NextPrime.
	g.t = 8

	return g, nil
}

// NextPrime returns the next prime in the generator's search order, or
// ErrOutOfPrimes if the window of every remaining k is exhausted. The floor
// for k is 0 if m is even and 1 if m is odd, since for odd m the factor 2
// of p-1 must come from 2^k.
func (g *PrimeGenerator) NextPrime() (uint64, error) {

	// The candidates for the current k are the odd t in [tlb, tub), with
	// tlb = ceil((3·2^{bitSize-2}-1)/(2^k·m)) and
	// tub = ceil((2^bitSize-1)/(2^k·m)); the window is non-empty whenever
	// 2^k·m <= 2^{bitSize-2}.
	tub := divc((uint64(1)<<g.bitSize)-1, g.m<<uint(g.k))

	for {

		g.t++

		if g.t >= tub {

			g.k--

			klb := 0
			if g.m&1 == 1 {
				klb = 1
			}

			if g.k < klb {
				return 0, fmt.Errorf("cannot NextPrime: %w (bitSize=%d, m=%d)", ErrOutOfPrimes, g.bitSize, g.m)
			}

			g.t = divc(3*(uint64(1)<<(g.bitSize-2))-1, g.m<<uint(g.k))
			tub = divc((uint64(1)<<g.bitSize)-1, g.m<<uint(g.k))
		}

		if g.t&1 == 0 {
			continue
		}

		cand := (g.t*g.m)<<uint(g.k) + 1

		// Sanity check
		if cand < 3*(uint64(1)<<(g.bitSize-2)) || cand >= uint64(1)<<g.bitSize {
			panic(fmt.Errorf("candidate %d outside of [3·2^%d, 2^%d)", cand, g.bitSize-2, g.bitSize))
		}

		if IsPrime(cand) {
			return cand, nil
		}
	}
}

// NextPrimes returns the next n primes in the generator's search order.
func (g *PrimeGenerator) NextPrimes(n int) (primes []uint64, err error) {
	primes = make([]uint64, n)
	for i := range primes {
		if primes[i], err = g.NextPrime(); err != nil {
			return nil, err
		}
	}
	return
}

// divc returns ceil(a/b).
func divc(a, b uint64) uint64 {
	return (a + b - 1) / b
}
