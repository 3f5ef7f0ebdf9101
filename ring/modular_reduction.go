package ring

import (
	"math/big"
	"math/bits"
)

// GenBRedConstant computes the constant for the Barrett reduction with a
// radix of 2^128.
func GenBRedConstant(q uint64) (constant [2]uint64) {
	bigR := new(big.Int).Lsh(new(big.Int).SetUint64(1), 128)
	bigR.Quo(bigR, new(big.Int).SetUint64(q))

	// 2^128 / q
	constant[0] = new(big.Int).Rsh(bigR, 64).Uint64()
	constant[1] = bigR.Uint64()

	return
}

// GenMRedConstant computes the constant qInv = (q^-1) mod 2^64 required for
// the Montgomery reduction.
func GenMRedConstant(q uint64) (qInv uint64) {
	qInv = 1
	x := q
	for i := 0; i < 63; i++ {
		qInv *= x
		x *= x
	}
	return
}

// MForm returns a*2^64 mod q.
func MForm(a, q uint64, bredconstant [2]uint64) (r uint64) {
	mhi, _ := bits.Mul64(a, bredconstant[1])
	r = -(a*bredconstant[0] + mhi) * q
	if r >= q {
		r -= q
	}
	return
}

// MRed computes x*y*(2^64)^-1 mod q.
func MRed(x, y, q, mredconstant uint64) (r uint64) {
	ahi, alo := bits.Mul64(x, y)
	R := alo * mredconstant
	H, _ := bits.Mul64(R, q)
	r = ahi - H + q
	if r >= q {
		r -= q
	}
	return
}

// BRedAdd reduces a 64-bit integer by q.
func BRedAdd(x, q uint64, bredconstant [2]uint64) (r uint64) {
	s0, _ := bits.Mul64(x, bredconstant[0])
	r = x - s0*q
	if r >= q {
		r -= q
	}
	return
}

// BRed computes x*y mod q with a Barrett reduction.
func BRed(x, y, q uint64, bredconstant [2]uint64) (r uint64) {

	var mhi, mlo, lhi, llo, hhi, carry uint64

	ahi, alo := bits.Mul64(x, y)

	// (alo*blo)>>64
	lhi, _ = bits.Mul64(alo, bredconstant[1])

	// ((ahi*blo + alo*bhi) + (alo*blo))>>64
	mhi, mlo = bits.Mul64(alo, bredconstant[0])
	llo, carry = bits.Add64(mlo, lhi, 0)
	hhi = mhi + carry

	mhi, mlo = bits.Mul64(ahi, bredconstant[1])
	_, carry = bits.Add64(mlo, llo, 0)
	lhi = mhi + carry

	// (ahi*bhi) + (((ahi*blo + alo*bhi) + (alo*blo))>>64)
	s := ahi*bredconstant[0] + hhi + lhi

	r = alo - s*q
	if r >= q {
		r -= q
	}

	return
}

// CRed returns a mod q, where a is required to be in the range [0, 2q-1].
func CRed(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}

// ModExp performs the modular exponentiation x^e mod q, x and q are required
// to be at most 64 bits to avoid an overflow.
func ModExp(x, e, q uint64) (result uint64) {
	brc := GenBRedConstant(q)
	result = 1
	for i := e; i > 0; i >>= 1 {
		if i&1 == 1 {
			result = BRed(result, x, q, brc)
		}
		x = BRed(x, x, q, brc)
	}
	return result
}
