package ring

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

func TestModulus(t *testing.T) {

	var m uint64 = 1 << 11

	g, err := NewPrimeGenerator(30, m)
	require.NoError(t, err)

	q, err := g.NextPrime()
	require.NoError(t, err)

	t.Run(testString("NewModulus", 30, m), func(t *testing.T) {

		s, err := NewModulus(m, q)
		require.NoError(t, err)
		require.Equal(t, q, s.Q)

		// Root is an M-th root of unity of full order: root^m = 1 and
		// root^(m/2) != 1 (m is a power of two).
		require.Equal(t, uint64(1), ModExp(s.Root, m, q))
		require.NotEqual(t, uint64(1), ModExp(s.Root, m>>1, q))

		require.NoError(t, CheckFactors(q-1, s.Factors))
	})

	t.Run("InvalidModulus", func(t *testing.T) {

		// composite
		_, err := NewModulus(m, q*3)
		require.Error(t, err)

		// prime but not 1 mod m (2^31-1)
		_, err = NewModulus(m, 2147483647)
		require.Error(t, err)
	})

	t.Run("PrimitiveRoot", func(t *testing.T) {

		root, factors, err := PrimitiveRoot(q, nil)
		require.NoError(t, err)
		require.NoError(t, CheckPrimitiveRoot(root, q, factors))

		// q-1 is fully covered by the returned factors
		require.NoError(t, CheckFactors(q-1, factors))
	})
}

func TestModularReduction(t *testing.T) {

	var m uint64 = 1 << 11

	g, err := NewPrimeGenerator(55, m)
	require.NoError(t, err)

	q, err := g.NextPrime()
	require.NoError(t, err)

	brc := GenBRedConstant(q)
	mrc := GenMRedConstant(q)

	bigQ := new(big.Int).SetUint64(q)

	mulModQ := func(x, y uint64) uint64 {
		r := new(big.Int).Mul(new(big.Int).SetUint64(x), new(big.Int).SetUint64(y))
		return r.Mod(r, bigQ).Uint64()
	}

	for i := 0; i < 128; i++ {

		x := sampling.RandUint64() % q
		y := sampling.RandUint64() % q

		require.Equal(t, mulModQ(x, y), BRed(x, y, q, brc))
		require.Equal(t, mulModQ(x, y), MRed(MForm(x, q, brc), y, q, mrc))
		require.Equal(t, (x+y)%q, CRed(x+y, q))

		z := sampling.RandUint64()
		require.Equal(t, z%q, BRedAdd(z, q, brc))
	}

	require.Equal(t, uint64(1), ModExp(1, 0, q))
	require.Equal(t, mulModQ(3, mulModQ(3, 3)), ModExp(3, 3, q))
}
