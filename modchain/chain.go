// Package modchain implements the moduli chain of a leveled homomorphic
// encryption scheme: an append-only registry of NTT-enabling primes
// partitioned into small, ciphertext and special roles, the key-switching
// digit partition of the ciphertext primes, and the precomputed size index
// (ModuliSizes) answering nearest-fit subset queries at rescaling time.
package modchain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tuneinsight/lattigo/v6/utils/buffer"
	"github.com/tuneinsight/primechain/ring"
)

// ErrPrimeInChain is returned when adding a prime already present in the
// chain. It indicates a logic fault in the caller, not a bad user input:
// the chain-building pipeline de-duplicates its candidates before insertion.
var ErrPrimeInChain = errors.New("prime already in the chain")

// Chain is the ordered, append-only collection of the prime moduli backing
// the RNS representation, partitioned into three disjoint role sets. Primes
// are only ever added, during the one-shot construction; once built, the
// chain is immutable and safe for concurrent reads.
type Chain struct {
	m      uint64
	moduli []*ring.Modulus

	smallPrimes   IndexSet
	ctxtPrimes    IndexSet
	specialPrimes IndexSet

	digits []IndexSet
}

// NewChain returns an empty chain for the m-th cyclotomic structure.
func NewChain(m uint64) *Chain {
	return &Chain{m: m}
}

// M returns the order of the cyclotomic group shared by all moduli.
func (c *Chain) M() uint64 {
	return c.m
}

// Len returns the number of primes in the chain.
func (c *Chain) Len() int {
	return len(c.moduli)
}

// IthModulus returns the i-th modulus of the chain.
func (c *Chain) IthModulus(i int) *ring.Modulus {
	return c.moduli[i]
}

// IthPrime returns the value of the i-th prime of the chain.
func (c *Chain) IthPrime(i int) uint64 {
	return c.moduli[i].Q
}

// InChain returns whether q is already a prime of the chain.
func (c *Chain) InChain(q uint64) bool {
	for _, s := range c.moduli {
		if s.Q == q {
			return true
		}
	}
	return false
}

// SmallPrimes returns a copy of the small-prime role set.
func (c *Chain) SmallPrimes() IndexSet {
	return c.smallPrimes.CopyNew()
}

// CtxtPrimes returns a copy of the ciphertext-prime role set.
func (c *Chain) CtxtPrimes() IndexSet {
	return c.ctxtPrimes.CopyNew()
}

// SpecialPrimes returns a copy of the special-prime role set.
func (c *Chain) SpecialPrimes() IndexSet {
	return c.specialPrimes.CopyNew()
}

// Digits returns a copy of the key-switching digit partition of the
// ciphertext primes.
func (c *Chain) Digits() []IndexSet {
	digits := make([]IndexSet, len(c.digits))
	for i := range digits {
		digits[i] = c.digits[i].CopyNew()
	}
	return digits
}

// AddSmallPrime appends q to the chain as a small prime.
func (c *Chain) AddSmallPrime(q uint64) error {
	return c.addPrime(q, &c.smallPrimes)
}

// AddCtxtPrime appends q to the chain as a ciphertext prime.
func (c *Chain) AddCtxtPrime(q uint64) error {
	return c.addPrime(q, &c.ctxtPrimes)
}

// AddSpecialPrime appends q to the chain as a special (key-switching) prime.
func (c *Chain) AddSpecialPrime(q uint64) error {
	return c.addPrime(q, &c.specialPrimes)
}

func (c *Chain) addPrime(q uint64, role *IndexSet) error {

	if c.InChain(q) {
		return fmt.Errorf("cannot add prime: %w (q=%d)", ErrPrimeInChain, q)
	}

	s, err := ring.NewModulus(c.m, q)
	if err != nil {
		return fmt.Errorf("cannot add prime: %w", err)
	}

	role.Insert(len(c.moduli))
	c.moduli = append(c.moduli, s)

	return nil
}

// LogOfPrime returns the natural logarithm of the i-th prime of the chain.
func (c *Chain) LogOfPrime(i int) float64 {
	return c.moduli[i].Log()
}

// LogOfProduct returns the natural logarithm of the product of the primes
// indexed by s.
func (c *Chain) LogOfProduct(s IndexSet) (logSize float64) {
	for _, i := range s.Indices() {
		logSize += c.LogOfPrime(i)
	}
	return
}

// PartitionDigits splits the ciphertext primes into nDgts contiguous digits
// of balanced log-size, used to bound the noise growth of key switching:
// primes are accumulated greedily, in chain order, into the current digit
// until its log-size reaches totalLog/nDgts, and the remainder forms the
// last digit. An empty last digit is dropped. nDgts is clamped to
// [1, |ctxtPrimes|]. It returns the largest per-digit log-size.
func (c *Chain) PartitionDigits(nDgts int) (maxDigitLog float64, err error) {

	if c.ctxtPrimes.Empty() {
		return 0, fmt.Errorf("cannot PartitionDigits: no ciphertext prime in the chain")
	}

	if nCtxt := c.ctxtPrimes.Card(); nDgts > nCtxt {
		nDgts = nCtxt
	}
	if nDgts <= 0 {
		nDgts = 1
	}

	c.digits = make([]IndexSet, nDgts)

	if nDgts == 1 {
		c.digits[0] = c.ctxtPrimes.CopyNew()
		return c.LogOfProduct(c.ctxtPrimes), nil
	}

	// Estimated log of each digit
	dlog := c.LogOfProduct(c.ctxtPrimes) / float64(nDgts)

	indices := c.ctxtPrimes.Indices()

	var pos int
	var logSoFar float64

	target := dlog
	for i := 0; i < nDgts-1; i++ {

		var s IndexSet
		for pos < len(indices) && (s.Empty() || logSoFar < target) {
			s.Insert(indices[pos])
			logSoFar += c.LogOfPrime(indices[pos])
			pos++
		}

		// Sanity check
		if s.Empty() {
			panic(fmt.Errorf("empty digit %d of %d over %d ciphertext primes", i, nDgts, len(indices)))
		}

		c.digits[i] = s
		maxDigitLog = math.Max(maxDigitLog, c.LogOfProduct(s))
		target += dlog
	}

	// The ciphertext primes that are left (if any) form the last digit
	var s IndexSet
	for ; pos < len(indices); pos++ {
		s.Insert(indices[pos])
	}

	if !s.Empty() {
		c.digits[nDgts-1] = s
		maxDigitLog = math.Max(maxDigitLog, c.LogOfProduct(s))
	} else {
		// If the last digit is empty, remove it
		c.digits = c.digits[:nDgts-1]
	}

	return
}

// BinarySize returns the serialized size of the object in bytes.
func (c *Chain) BinarySize() (size int) {
	size = 8 + 8 + 8*len(c.moduli) // m, prime count, prime values
	size += c.smallPrimes.BinarySize()
	size += c.ctxtPrimes.BinarySize()
	size += c.specialPrimes.BinarySize()
	size += 8 // digit count
	for i := range c.digits {
		size += c.digits[i].BinarySize()
	}
	return
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, serializing the chain as its ordered prime values followed by
// the three role sets and the digit partition.
func (c *Chain) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteUint64(w, c.m); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteUint64: %w", err)
		}
		n += inc

		if inc, err = buffer.WriteAsUint64[int](w, len(c.moduli)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		for _, s := range c.moduli {
			if inc, err = buffer.WriteUint64(w, s.Q); err != nil {
				return n + inc, fmt.Errorf("buffer.WriteUint64: %w", err)
			}
			n += inc
		}

		for _, role := range []IndexSet{c.smallPrimes, c.ctxtPrimes, c.specialPrimes} {
			if inc, err = role.WriteTo(w); err != nil {
				return n + inc, fmt.Errorf("IndexSet.WriteTo: %w", err)
			}
			n += inc
		}

		if inc, err = buffer.WriteAsUint64[int](w, len(c.digits)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		for i := range c.digits {
			if inc, err = c.digits[i].WriteTo(w); err != nil {
				return n + inc, fmt.Errorf("IndexSet.WriteTo: %w", err)
			}
			n += inc
		}

		return n, w.Flush()

	default:
		return c.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer, rebuilding the per-prime
// precomputations. It implements the io.ReaderFrom interface.
func (c *Chain) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		if inc, err = buffer.ReadUint64(r, &c.m); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadUint64: %w", err)
		}
		n += inc

		var size int
		if inc, err = buffer.ReadAsUint64[int](r, &size); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		c.moduli = make([]*ring.Modulus, size)
		for i := range c.moduli {

			var q uint64
			if inc, err = buffer.ReadUint64(r, &q); err != nil {
				return n + inc, fmt.Errorf("buffer.ReadUint64: %w", err)
			}
			n += inc

			if c.moduli[i], err = ring.NewModulus(c.m, q); err != nil {
				return n, fmt.Errorf("ring.NewModulus: %w", err)
			}
		}

		for _, role := range []*IndexSet{&c.smallPrimes, &c.ctxtPrimes, &c.specialPrimes} {
			if inc, err = role.ReadFrom(r); err != nil {
				return n + inc, fmt.Errorf("IndexSet.ReadFrom: %w", err)
			}
			n += inc
		}

		if inc, err = buffer.ReadAsUint64[int](r, &size); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		c.digits = make([]IndexSet, size)
		for i := range c.digits {
			if inc, err = c.digits[i].ReadFrom(r); err != nil {
				return n + inc, fmt.Errorf("IndexSet.ReadFrom: %w", err)
			}
			n += inc
		}

		return n, nil

	default:
		return c.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (c *Chain) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(c.BinarySize())
	_, err = c.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (c *Chain) UnmarshalBinary(p []byte) (err error) {
	_, err = c.ReadFrom(buffer.NewBuffer(p))
	return
}
