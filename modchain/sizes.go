package modchain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/tuneinsight/lattigo/v6/utils/buffer"
)

// ErrNoFeasibleSet is returned by the ModuliSizes queries when no entry lies
// in the target interval nor within one bit of its boundary, which indicates
// that the index was built over a chain too small or too sparse for the
// query range.
var ErrNoFeasibleSet = errors.New("no feasible prime set for this size range")

// Entry associates a set of chain indices with the natural logarithm of the
// product of the corresponding primes.
type Entry struct {
	LogSize float64
	Primes  IndexSet
}

// ModuliSizes is a read-only index over the size of selected subsets of the
// chain: every subset of the small primes combined with every prefix
// interval of the ciphertext primes, sorted by ascending log-size. It is
// built once, after the chain is final, and supports the nearest-fit subset
// queries driving modulus switching. Prefix intervals (rather than arbitrary
// ciphertext subsets) suffice because rescaling always drops primes from one
// end of the chain, while small primes are dropped independently to reach a
// finer size resolution.
type ModuliSizes struct {
	sizes []Entry
}

// NewModuliSizes builds the size index over the final state of the chain.
// The resulting table holds 2^|smallPrimes| · (|ctxtPrimes|+1) entries,
// enumerated in closed form.
func NewModuliSizes(c *Chain) *ModuliSizes {

	small := c.SmallPrimes()
	ctxt := c.CtxtPrimes()

	sizes := make([]Entry, 1, (1<<uint(small.Card()))*(ctxt.Card()+1))
	sizes[0] = Entry{} // the empty set

	// All subsets of the small primes: adding one prime doubles the table.
	idx := 1 // first index that is still not set
	for _, i := range small.Indices() {
		logQi := c.LogOfPrime(i)
		for j := idx; j < 2*idx; j++ {
			e := Entry{LogSize: sizes[j-idx].LogSize + logQi, Primes: sizes[j-idx].Primes.CopyNew()}
			e.Primes.Insert(i)
			sizes = append(sizes, e)
		}
		idx *= 2
	}

	// For every prefix interval of the ciphertext primes, a copy of the
	// table above plus the interval.
	var interval IndexSet
	var intervalSize float64
	for _, i := range ctxt.Indices() {
		interval.Insert(i)
		intervalSize += c.LogOfPrime(i)
		for j := 0; j < idx; j++ {
			e := Entry{LogSize: sizes[j].LogSize + intervalSize, Primes: sizes[j].Primes.Union(interval)}
			sizes = append(sizes, e)
		}
	}

	sort.SliceStable(sizes, func(i, j int) bool {
		return sizes[i].LogSize < sizes[j].LogSize
	})

	return &ModuliSizes{sizes: sizes}
}

// Len returns the number of entries of the index.
func (m *ModuliSizes) Len() int {
	return len(m.sizes)
}

// At returns a copy of the i-th entry of the index, in ascending log-size
// order.
func (m *ModuliSizes) At(i int) Entry {
	return Entry{LogSize: m.sizes[i].LogSize, Primes: m.sizes[i].Primes.CopyNew()}
}

// GetSet4Size returns the set of an entry whose log-size lies in
// [low, high], minimizing the number of primes of fromSet absent from the
// entry, i.e. the number of primes the caller would have to drop from its
// current working set. Among entries of equal cost the largest one in range
// wins. If no entry lies in the range, the entries within one bit (ln 2) of
// the boundary are examined instead: below low, or above high if reverse is
// set, this time preferring the closest entry among equal costs. If there is
// still no candidate, ErrNoFeasibleSet is returned.
func (m *ModuliSizes) GetSet4Size(low, high float64, fromSet IndexSet, reverse bool) (IndexSet, error) {
	return m.getSet4Size(low, high, reverse, func(e *Entry) int {
		return fromSet.CardDiff(e.Primes)
	})
}

// GetSet4SizeTwo is GetSet4Size with the cost of an entry summed over two
// working sets, used when the candidate must be compatible with the prime
// sets of two ciphertexts at once.
func (m *ModuliSizes) GetSet4SizeTwo(low, high float64, from1, from2 IndexSet, reverse bool) (IndexSet, error) {
	return m.getSet4Size(low, high, reverse, func(e *Entry) int {
		return from1.CardDiff(e.Primes) + from2.CardDiff(e.Primes)
	})
}

func (m *ModuliSizes) getSet4Size(low, high float64, reverse bool, cost func(*Entry) int) (IndexSet, error) {

	n := len(m.sizes)

	// Index of the first entry with LogSize >= low
	idx := sort.Search(n, func(i int) bool { return m.sizes[i].LogSize >= low })

	bestOption := -1
	bestCost := math.MaxInt

	ii := idx
	for ; ii < n && m.sizes[ii].LogSize <= high; ii++ {
		if c := cost(&m.sizes[ii]); c <= bestCost {
			bestOption, bestCost = ii, c
		}
	}

	// If nothing was found, fall back to the entries within one bit of the
	// closest boundary: above high if reverse, below low otherwise.
	if bestOption == -1 {
		if reverse {
			if ii < n {
				upperBound := m.sizes[ii].LogSize + math.Ln2
				for i := ii; i < n && m.sizes[i].LogSize <= upperBound; i++ {
					if c := cost(&m.sizes[i]); c < bestCost {
						bestOption, bestCost = i, c
					}
				}
			}
		} else if idx > 0 {
			lowerBound := m.sizes[idx-1].LogSize - math.Ln2
			for i := idx - 1; i >= 0 && m.sizes[i].LogSize >= lowerBound; i-- {
				if c := cost(&m.sizes[i]); c < bestCost {
					bestOption, bestCost = i, c
				}
			}
		}
	}

	if bestOption == -1 {
		return IndexSet{}, fmt.Errorf("cannot GetSet4Size: %w (%d entries, range [%f, %f])", ErrNoFeasibleSet, n, low, high)
	}

	return m.sizes[bestOption].Primes.CopyNew(), nil
}

// BinarySize returns the serialized size of the object in bytes.
func (m *ModuliSizes) BinarySize() (size int) {
	size = 8
	for i := range m.sizes {
		size += 8 + m.sizes[i].Primes.BinarySize()
	}
	return
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, serializing the index as its ordered list of
// (logSize, primeIndexSet) pairs; the float64 log-sizes are written as raw
// bit patterns, so that a round trip reproduces them exactly.
func (m *ModuliSizes) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.WriteAsUint64[int](w, len(m.sizes)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		for i := range m.sizes {

			if inc, err = buffer.WriteAsUint64[float64](w, m.sizes[i].LogSize); err != nil {
				return n + inc, fmt.Errorf("buffer.WriteAsUint64[float64]: %w", err)
			}
			n += inc

			if inc, err = m.sizes[i].Primes.WriteTo(w); err != nil {
				return n + inc, fmt.Errorf("IndexSet.WriteTo: %w", err)
			}
			n += inc
		}

		return n, w.Flush()

	default:
		return m.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer. It implements the
// io.ReaderFrom interface.
func (m *ModuliSizes) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		var size int
		if inc, err = buffer.ReadAsUint64[int](r, &size); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		m.sizes = make([]Entry, size)
		for i := range m.sizes {

			if inc, err = buffer.ReadAsUint64[float64](r, &m.sizes[i].LogSize); err != nil {
				return n + inc, fmt.Errorf("buffer.ReadAsUint64[float64]: %w", err)
			}
			n += inc

			if inc, err = m.sizes[i].Primes.ReadFrom(r); err != nil {
				return n + inc, fmt.Errorf("IndexSet.ReadFrom: %w", err)
			}
			n += inc
		}

		return n, nil

	default:
		return m.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (m *ModuliSizes) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(m.BinarySize())
	_, err = m.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (m *ModuliSizes) UnmarshalBinary(p []byte) (err error) {
	_, err = m.ReadFrom(buffer.NewBuffer(p))
	return
}
