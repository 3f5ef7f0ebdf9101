/*
Package primechain implements the construction of the prime moduli chain
backing the RNS representation of a leveled homomorphic-encryption scheme:
a constrained generator for NTT-enabling primes of the form 2^k·t·m + 1,
an append-only chain of primes partitioned into small, ciphertext and
special roles, a key-switching digit partition of the ciphertext primes,
and a precomputed modulus-size index supporting nearest-fit subset queries
at rescaling time.

The sub-packages of this module are:
  - [github.com/tuneinsight/primechain/ring]: prime generation and
    per-prime modular precomputations;
  - [github.com/tuneinsight/primechain/modchain]: the moduli chain, the
    size index and the chain-building pipeline.
*/
package primechain
