package modchain

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/primechain/ring"
)

func testString(op string, m uint64) string {
	return fmt.Sprintf("%s/M=%d", op, m)
}

// testChain returns a chain over the m-th cyclotomic structure with
// nSmall small primes of smallBits bits and nCtxt ciphertext primes of
// ctxtBits bits.
func testChain(t *testing.T, m uint64, nSmall int, smallBits uint64, nCtxt int, ctxtBits uint64) *Chain {

	c := NewChain(m)

	g, err := ring.NewPrimeGenerator(smallBits, m)
	require.NoError(t, err)
	primes, err := g.NextPrimes(nSmall)
	require.NoError(t, err)
	for _, q := range primes {
		require.NoError(t, c.AddSmallPrime(q))
	}

	g, err = ring.NewPrimeGenerator(ctxtBits, m)
	require.NoError(t, err)
	primes, err = g.NextPrimes(nCtxt)
	require.NoError(t, err)
	for _, q := range primes {
		require.NoError(t, c.AddCtxtPrime(q))
	}

	return c
}

func TestChain(t *testing.T) {

	var m uint64 = 1 << 10

	t.Run(testString("AddPrime", m), func(t *testing.T) {

		c := testChain(t, m, 2, 22, 3, 30)

		g, err := ring.NewPrimeGenerator(35, m)
		require.NoError(t, err)
		q, err := g.NextPrime()
		require.NoError(t, err)
		require.NoError(t, c.AddSpecialPrime(q))

		require.Equal(t, 6, c.Len())
		require.True(t, c.InChain(q))
		require.False(t, c.InChain(q+1))

		// indices are assigned sequentially per insertion order
		require.Equal(t, []int{0, 1}, c.SmallPrimes().Indices())
		require.Equal(t, []int{2, 3, 4}, c.CtxtPrimes().Indices())
		require.Equal(t, []int{5}, c.SpecialPrimes().Indices())

		// the three role sets are pairwise disjoint
		require.True(t, c.SmallPrimes().Disjoint(c.CtxtPrimes()))
		require.True(t, c.SmallPrimes().Disjoint(c.SpecialPrimes()))
		require.True(t, c.CtxtPrimes().Disjoint(c.SpecialPrimes()))

		// re-adding an existing prime is rejected, under any role
		require.ErrorIs(t, c.AddSmallPrime(q), ErrPrimeInChain)
		require.ErrorIs(t, c.AddCtxtPrime(q), ErrPrimeInChain)
		require.ErrorIs(t, c.AddSpecialPrime(c.IthPrime(0)), ErrPrimeInChain)

		// a prime not congruent to 1 mod m is rejected (2^31-1)
		require.Error(t, c.AddCtxtPrime(2147483647))
	})

	t.Run(testString("LogOfProduct", m), func(t *testing.T) {

		c := testChain(t, m, 2, 22, 3, 30)

		var logQ float64
		for _, i := range c.CtxtPrimes().Indices() {
			logQ += math.Log(float64(c.IthPrime(i)))
		}

		require.InDelta(t, logQ, c.LogOfProduct(c.CtxtPrimes()), 1e-9)
		require.Zero(t, c.LogOfProduct(IndexSet{}))
	})

	t.Run(testString("PartitionDigits", m), func(t *testing.T) {

		for _, nDgts := range []int{1, 2, 3, 7, 100} {

			c := testChain(t, m, 2, 22, 7, 30)

			maxDigitLog, err := c.PartitionDigits(nDgts)
			require.NoError(t, err)

			digits := c.Digits()
			require.NotEmpty(t, digits)
			require.LessOrEqual(t, len(digits), 7) // clamped to the ciphertext primes

			// pairwise disjoint, none empty, union is exactly ctxtPrimes
			var union IndexSet
			for i := range digits {
				require.False(t, digits[i].Empty())
				require.True(t, union.Disjoint(digits[i]))
				union.InsertSet(digits[i])
				require.LessOrEqual(t, c.LogOfProduct(digits[i]), maxDigitLog+1e-9)
			}
			require.True(t, union.Equal(c.CtxtPrimes()))
		}

		// no ciphertext prime to partition
		_, err := NewChain(m).PartitionDigits(1)
		require.Error(t, err)
	})

	t.Run(testString("Serialization", m), func(t *testing.T) {

		c := testChain(t, m, 2, 22, 4, 30)
		_, err := c.PartitionDigits(2)
		require.NoError(t, err)

		p, err := c.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, c.BinarySize(), len(p))

		cNew := new(Chain)
		require.NoError(t, cNew.UnmarshalBinary(p))

		require.Equal(t, c.M(), cNew.M())
		require.Equal(t, c.Len(), cNew.Len())
		for i := 0; i < c.Len(); i++ {
			require.Equal(t, c.IthPrime(i), cNew.IthPrime(i))
		}

		require.True(t, c.SmallPrimes().Equal(cNew.SmallPrimes()))
		require.True(t, c.CtxtPrimes().Equal(cNew.CtxtPrimes()))
		require.True(t, c.SpecialPrimes().Equal(cNew.SpecialPrimes()))

		digits, digitsNew := c.Digits(), cNew.Digits()
		require.Equal(t, len(digits), len(digitsNew))
		for i := range digits {
			require.True(t, digits[i].Equal(digitsNew[i]))
		}
	})
}
