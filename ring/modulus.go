package ring

import (
	"fmt"
	"math"
	"math/big"

	"github.com/tuneinsight/lattigo/v6/utils/factorization"
)

// Modulus stores a prime modulus of the chain together with its fast modular
// reduction constants and a primitive M-th root of unity modulo Q, i.e. the
// per-prime precomputation consumed by the NTT layer.
type Modulus struct {

	// Prime modulus
	Q uint64

	// Order of the cyclotomic group
	M uint64

	// Primitive M-th root of unity modulo Q
	Root uint64

	// Distinct prime factors of Q-1
	Factors []uint64

	// Fast reduction constants
	BRedConstant [2]uint64 // Barrett reduction
	MRedConstant uint64    // Montgomery reduction
}

// NewModulus computes the precomputations for the prime q with respect to
// the cyclotomic order m. It returns an error if q is not prime or if
// q != 1 mod m, since the M-th root of unity then does not exist.
func NewModulus(m, q uint64) (s *Modulus, err error) {

	if !IsPrime(q) {
		return nil, fmt.Errorf("cannot NewModulus: %d is not prime", q)
	}

	if m == 0 || (q-1)%m != 0 {
		return nil, fmt.Errorf("cannot NewModulus: %d != 1 mod %d", q, m)
	}

	s = &Modulus{Q: q, M: m}

	s.BRedConstant = GenBRedConstant(q)

	// No valid Montgomery form mod a power of two
	if q&(q-1) != 0 {
		s.MRedConstant = GenMRedConstant(q)
	}

	var g uint64
	if g, s.Factors, err = PrimitiveRoot(q, nil); err != nil {
		return nil, fmt.Errorf("cannot NewModulus: %w", err)
	}

	s.Root = ModExp(g, (q-1)/m, q)

	return
}

// Log returns the natural logarithm of the modulus.
func (s *Modulus) Log() float64 {
	return math.Log(float64(s.Q))
}

// PrimitiveRoot computes the smallest primitive root of the given prime q.
// The unique factors of q-1 can be given to speed up the search for the
// root.
func PrimitiveRoot(q uint64, factors []uint64) (uint64, []uint64, error) {

	if factors != nil {
		if err := CheckFactors(q-1, factors); err != nil {
			return 0, factors, err
		}
	} else {

		factorsBig := factorization.GetFactors(new(big.Int).SetUint64(q - 1)) // Factor q-1, might be slow

		factors = make([]uint64, len(factorsBig))
		for i := range factors {
			factors[i] = factorsBig[i].Uint64()
		}
	}

	notFoundPrimitiveRoot := true

	var g uint64 = 2

	for notFoundPrimitiveRoot {
		g++
		for _, factor := range factors {
			// if for any factor of q-1, g^(q-1)/factor = 1 mod q, g is not a primitive root
			if ModExp(g, (q-1)/factor, q) == 1 {
				notFoundPrimitiveRoot = true
				break
			}
			notFoundPrimitiveRoot = false
		}
	}

	return g, factors, nil
}

// CheckFactors checks that the given list of factors contains all the unique
// primes of m.
func CheckFactors(m uint64, factors []uint64) (err error) {

	for _, factor := range factors {

		if !IsPrime(factor) {
			return fmt.Errorf("composite factor")
		}

		for m%factor == 0 {
			m /= factor
		}
	}

	if m != 1 {
		return fmt.Errorf("incomplete factor list")
	}

	return
}

// CheckPrimitiveRoot checks that g is a valid primitive root mod q, given
// the factors of q-1.
func CheckPrimitiveRoot(g, q uint64, factors []uint64) (err error) {

	if err = CheckFactors(q-1, factors); err != nil {
		return
	}

	for _, factor := range factors {
		if ModExp(g, (q-1)/factor, q) == 1 {
			return fmt.Errorf("invalid primitive root")
		}
	}

	return
}
