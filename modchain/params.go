package modchain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/go-cmp/cmp"
)

// MaxM is the largest supported order of the cyclotomic group for the
// chain-building pipeline, which guarantees that the small-prime sizes
// remain generable (16·m·log(m) stays well below the native prime bound).
const MaxM = 1 << 20

const (
	// DefaultResolution is the bit-resolution of the small primes
	// substituted when the requested resolution is out of [1, 10].
	DefaultResolution = 3

	// DefaultNDigits is the number of key-switching digits substituted
	// when the requested number is not positive.
	DefaultNDigits = 3

	// DefaultSigma is the standard deviation of the Gaussian error
	// distribution entering the special-prime size target.
	DefaultSigma = 3.2

	// DefaultBootstrapExtraExponent is the extra power of the plaintext
	// modulus budgeted for bootstrapping when the context is built
	// bootstrappable.
	DefaultBootstrapExtraExponent = 7
)

// ParametersLiteral is a literal representation of the chain-building
// parameters. It has public fields and is used to express unchecked
// user-defined parameters literally into Go programs. The
// [NewParametersFromLiteral] function is used to generate the actual checked
// parameters from the literal representation.
//
// Users must set the order of the cyclotomic group (M) and the requested
// bit-length of the ciphertext modulus (LogQ). All other fields default as
// documented on the corresponding constants when left unset.
type ParametersLiteral struct {
	M                      uint64
	LogQ                   int
	NDigits                int     `json:",omitempty"`
	Resolution             int     `json:",omitempty"`
	Sigma                  float64 `json:",omitempty"`
	PlaintextModulus       uint64  `json:",omitempty"`
	PlaintextHenselLift    int     `json:",omitempty"`
	Bootstrappable         bool    `json:",omitempty"`
	BootstrapExtraExponent int     `json:",omitempty"`
}

// Parameters represents a checked, immutable set of chain-building
// parameters. See [ParametersLiteral] for user-specified parameters.
type Parameters struct {
	m                      uint64
	logQ                   int
	nDigits                int
	resolution             int
	sigma                  float64
	plaintextModulus       uint64
	plaintextHenselLift    int
	bootstrappable         bool
	bootstrapExtraExponent int
}

// NewParametersFromLiteral instantiates a set of checked chain-building
// parameters from a [ParametersLiteral] specification. It returns the empty
// parameters Parameters{} and a non-nil error if the specified parameters
// are invalid.
func NewParametersFromLiteral(paramDef ParametersLiteral) (params Parameters, err error) {

	if paramDef.M == 0 || paramDef.M > MaxM {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: M must be in [1, 2^20] but is %d", paramDef.M)
	}

	if paramDef.LogQ < 1 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: LogQ must be at least 1 but is %d", paramDef.LogQ)
	}

	if paramDef.Resolution < 1 || paramDef.Resolution > 10 {
		paramDef.Resolution = DefaultResolution
	}

	if paramDef.NDigits <= 0 {
		paramDef.NDigits = DefaultNDigits
	}

	if paramDef.Sigma == 0 {
		paramDef.Sigma = DefaultSigma
	}
	if paramDef.Sigma < 0 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: Sigma must be positive but is %f", paramDef.Sigma)
	}

	if paramDef.PlaintextModulus == 0 {
		paramDef.PlaintextModulus = 2
	}
	if paramDef.PlaintextModulus < 2 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: PlaintextModulus must be at least 2 but is %d", paramDef.PlaintextModulus)
	}

	if paramDef.PlaintextHenselLift == 0 {
		paramDef.PlaintextHenselLift = 1
	}
	if paramDef.PlaintextHenselLift < 1 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: PlaintextHenselLift must be at least 1 but is %d", paramDef.PlaintextHenselLift)
	}

	if paramDef.BootstrapExtraExponent == 0 {
		paramDef.BootstrapExtraExponent = DefaultBootstrapExtraExponent
	}
	if paramDef.BootstrapExtraExponent < 0 {
		return Parameters{}, fmt.Errorf("cannot NewParametersFromLiteral: BootstrapExtraExponent must be positive but is %d", paramDef.BootstrapExtraExponent)
	}

	return Parameters{
		m:                      paramDef.M,
		logQ:                   paramDef.LogQ,
		nDigits:                paramDef.NDigits,
		resolution:             paramDef.Resolution,
		sigma:                  paramDef.Sigma,
		plaintextModulus:       paramDef.PlaintextModulus,
		plaintextHenselLift:    paramDef.PlaintextHenselLift,
		bootstrappable:         paramDef.Bootstrappable,
		bootstrapExtraExponent: paramDef.BootstrapExtraExponent,
	}, nil
}

// M returns the order of the cyclotomic group.
func (p Parameters) M() uint64 {
	return p.m
}

// LogQ returns the requested bit-length of the ciphertext modulus.
func (p Parameters) LogQ() int {
	return p.logQ
}

// NDigits returns the requested number of key-switching digits.
func (p Parameters) NDigits() int {
	return p.nDigits
}

// Resolution returns the bit-resolution of the small primes.
func (p Parameters) Resolution() int {
	return p.resolution
}

// Sigma returns the standard deviation of the Gaussian error distribution.
func (p Parameters) Sigma() float64 {
	return p.sigma
}

// PlaintextModulus returns the plaintext prime modulus.
func (p Parameters) PlaintextModulus() uint64 {
	return p.plaintextModulus
}

// PlaintextHenselLift returns the Hensel lifting power r of the plaintext
// space p^r.
func (p Parameters) PlaintextHenselLift() int {
	return p.plaintextHenselLift
}

// Bootstrappable returns whether the chain is built to later support
// bootstrapping.
func (p Parameters) Bootstrappable() bool {
	return p.bootstrappable
}

// BootstrapExtraExponent returns the extra power of the plaintext modulus
// budgeted for bootstrapping.
func (p Parameters) BootstrapExtraExponent() int {
	return p.bootstrapExtraExponent
}

// LogPlaintextPower returns the natural logarithm of p^e, the power of the
// plaintext modulus entering the special-prime size target: e is the Hensel
// lift r, augmented by the bootstrapping exponent when the chain is built
// bootstrappable.
func (p Parameters) LogPlaintextPower() float64 {
	e := p.plaintextHenselLift
	if p.bootstrappable {
		e += p.bootstrapExtraExponent
	}
	return float64(e) * math.Log(float64(p.plaintextModulus))
}

// ParametersLiteral returns the literal representation of the parameters.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	return ParametersLiteral{
		M:                      p.m,
		LogQ:                   p.logQ,
		NDigits:                p.nDigits,
		Resolution:             p.resolution,
		Sigma:                  p.sigma,
		PlaintextModulus:       p.plaintextModulus,
		PlaintextHenselLift:    p.plaintextHenselLift,
		Bootstrappable:         p.bootstrappable,
		BootstrapExtraExponent: p.bootstrapExtraExponent,
	}
}

// Equal returns whether the two sets of parameters are identical.
func (p Parameters) Equal(other Parameters) bool {
	return cmp.Equal(p.ParametersLiteral(), other.ParametersLiteral())
}

// MarshalJSON encodes the parameters as their literal representation.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON decodes, checks and assigns the literal representation of
// the parameters.
func (p *Parameters) UnmarshalJSON(b []byte) (err error) {
	var paramDef ParametersLiteral
	if err = json.Unmarshal(b, &paramDef); err != nil {
		return err
	}
	*p, err = NewParametersFromLiteral(paramDef)
	return
}
