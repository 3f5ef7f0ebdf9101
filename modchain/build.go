package modchain

import (
	"fmt"
	"math"

	"github.com/tuneinsight/lattigo/v6/utils"
	"github.com/tuneinsight/primechain/ring"
)

// BuildModChain populates a new chain according to params, in three phases:
// small primes giving the requested bit-resolution, ciphertext primes of the
// native width up to the requested ciphertext modulus bit-length, and
// special primes covering the key-switching noise of the digit partition.
// It returns the finished chain along with its size index. A generator
// exhaustion in any phase aborts the construction; no partial chain is
// returned.
func BuildModChain(params Parameters) (c *Chain, sizes *ModuliSizes, err error) {

	c = NewChain(params.M())

	if err = addSmallPrimes(c, params.Resolution()); err != nil {
		return nil, nil, fmt.Errorf("cannot BuildModChain: %w", err)
	}

	if err = addCtxtPrimes(c, params.LogQ()); err != nil {
		return nil, nil, fmt.Errorf("cannot BuildModChain: %w", err)
	}

	if err = addSpecialPrimes(c, params); err != nil {
		return nil, nil, fmt.Errorf("cannot BuildModChain: %w", err)
	}

	return c, NewModuliSizes(c), nil
}

// smallPrimeSizes returns the bit-sizes of the small primes giving the
// requested resolution for the 60-bit native width: two 40-bit base primes,
// the geometric ladder 60-resolution·2^j down to the base, and the
// 60-3·resolution (and, for resolution 1, 60-11) sizes that minimize the
// number of small primes needed to express any particular multiple of the
// resolution. The constants are empirically tuned and kept as is.
func smallPrimeSizes(resolution int) []uint64 {

	sizes := []uint64{40, 40}

	for delta := resolution; ring.MaxPrimeBitSize-uint64(delta) > sizes[0]; delta *= 2 {
		sizes = append(sizes, ring.MaxPrimeBitSize-uint64(delta))
	}

	if ring.MaxPrimeBitSize-uint64(3*resolution) > sizes[0] {
		sizes = append(sizes, ring.MaxPrimeBitSize-uint64(3*resolution))
	}

	if resolution == 1 && ring.MaxPrimeBitSize-11 > sizes[0] {
		sizes = append(sizes, ring.MaxPrimeBitSize-11)
	}

	return sizes
}

// addSmallPrimes adds the small primes giving the requested bit-resolution,
// bucketing the requested sizes so that repeated sizes draw successive
// primes from a single generator.
func addSmallPrimes(c *Chain, resolution int) error {

	primesbitlen := make(map[uint64]int)
	for _, size := range smallPrimeSizes(resolution) {
		primesbitlen[size]++
	}

	for _, bitsize := range utils.GetSortedKeys(primesbitlen) {

		g, err := ring.NewPrimeGenerator(bitsize, c.M())
		if err != nil {
			return fmt.Errorf("cannot addSmallPrimes: %w", err)
		}

		primes, err := g.NextPrimes(primesbitlen[bitsize])
		if err != nil {
			return fmt.Errorf("cannot addSmallPrimes: %w", err)
		}

		for _, q := range primes {
			if err = c.AddSmallPrime(q); err != nil {
				return fmt.Errorf("cannot addSmallPrimes: %w", err)
			}
		}
	}

	return nil
}

// addCtxtPrimes adds ciphertext primes of the native maximum width until
// their cumulative log2 reaches the requested ciphertext modulus bit-length.
func addCtxtPrimes(c *Chain, logQ int) error {

	g, err := ring.NewPrimeGenerator(ring.MaxPrimeBitSize, c.M())
	if err != nil {
		return fmt.Errorf("cannot addCtxtPrimes: %w", err)
	}

	var bitlen float64
	for bitlen < float64(logQ) {

		q, err := g.NextPrime()
		if err != nil {
			return fmt.Errorf("cannot addCtxtPrimes: %w", err)
		}

		if err = c.AddCtxtPrime(q); err != nil {
			return fmt.Errorf("cannot addCtxtPrimes: %w", err)
		}

		bitlen += math.Log2(float64(q))
	}

	return nil
}

// addSpecialPrimes partitions the ciphertext primes into digits and adds
// special primes covering the key-switching noise target
// maxDigitLog + log(nDgts) + log(2σ) + log(p^e). The prime size is chosen
// so that the target is not overshot by more than the granularity allows,
// and candidates already present in the chain are skipped, since the size
// can collide with the native width already used for the ciphertext primes.
func addSpecialPrimes(c *Chain, params Parameters) error {

	maxDigitLog, err := c.PartitionDigits(params.NDigits())
	if err != nil {
		return fmt.Errorf("cannot addSpecialPrimes: %w", err)
	}

	nDgts := len(c.Digits())

	logOfSpecialPrimes := maxDigitLog +
		math.Log(float64(nDgts)) +
		math.Log(2*params.Sigma()) +
		params.LogPlaintextPower()

	// Bit-length of each special prime, estimated so that the last prime
	// does not overshoot the target by much; the +1 avoids undershooting.
	totalBits := logOfSpecialPrimes / math.Ln2
	numPrimes := math.Ceil(totalBits / float64(ring.MaxPrimeBitSize))
	nbits := uint64(math.Ceil(totalBits/numPrimes)) + 1
	if nbits > ring.MaxPrimeBitSize {
		nbits = ring.MaxPrimeBitSize
	}

	g, err := ring.NewPrimeGenerator(nbits, c.M())
	if err != nil {
		return fmt.Errorf("cannot addSpecialPrimes: %w", err)
	}

	var logSoFar float64
	for logSoFar < logOfSpecialPrimes {

		q, err := g.NextPrime()
		if err != nil {
			return fmt.Errorf("cannot addSpecialPrimes: %w", err)
		}

		if c.InChain(q) {
			continue
		}

		if err = c.AddSpecialPrime(q); err != nil {
			return fmt.Errorf("cannot addSpecialPrimes: %w", err)
		}

		logSoFar += math.Log(float64(q))
	}

	return nil
}
