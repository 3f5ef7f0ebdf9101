package modchain

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/tuneinsight/lattigo/v6/utils/buffer"
)

// IndexSet is an ordered set of chain indices, backed by a sorted slice of
// distinct small integers. It is a value type: sets derived from other sets
// (Union, CopyNew) never share their backing slice.
type IndexSet struct {
	indices []int
}

// NewIndexSet returns the set holding the given indices.
func NewIndexSet(indices ...int) (s IndexSet) {
	for _, i := range indices {
		s.Insert(i)
	}
	return
}

// Card returns the cardinality of the set.
func (s IndexSet) Card() int {
	return len(s.indices)
}

// Empty returns whether the set is empty.
func (s IndexSet) Empty() bool {
	return len(s.indices) == 0
}

// Contains returns whether i is in the set.
func (s IndexSet) Contains(i int) bool {
	j := sort.SearchInts(s.indices, i)
	return j < len(s.indices) && s.indices[j] == i
}

// First returns the smallest index of the set, or -1 if the set is empty.
func (s IndexSet) First() int {
	if len(s.indices) == 0 {
		return -1
	}
	return s.indices[0]
}

// Last returns the largest index of the set, or -1 if the set is empty.
func (s IndexSet) Last() int {
	if len(s.indices) == 0 {
		return -1
	}
	return s.indices[len(s.indices)-1]
}

// Next returns the smallest index of the set strictly greater than i, or -1
// if there is none.
func (s IndexSet) Next(i int) int {
	j := sort.SearchInts(s.indices, i+1)
	if j == len(s.indices) {
		return -1
	}
	return s.indices[j]
}

// Indices returns the indices of the set in increasing order, as a copy.
func (s IndexSet) Indices() []int {
	indices := make([]int, len(s.indices))
	copy(indices, s.indices)
	return indices
}

// Insert adds i to the set.
func (s *IndexSet) Insert(i int) {
	j := sort.SearchInts(s.indices, i)
	if j < len(s.indices) && s.indices[j] == i {
		return
	}
	s.indices = append(s.indices, 0)
	copy(s.indices[j+1:], s.indices[j:])
	s.indices[j] = i
}

// InsertSet adds all the indices of other to the set.
func (s *IndexSet) InsertSet(other IndexSet) {
	for _, i := range other.indices {
		s.Insert(i)
	}
}

// Union returns a new set holding the indices of both s and other.
func (s IndexSet) Union(other IndexSet) (u IndexSet) {
	u = s.CopyNew()
	u.InsertSet(other)
	return
}

// CardDiff returns the number of indices of s that are not in other, i.e.
// the cardinality of the asymmetric difference s \ other.
func (s IndexSet) CardDiff(other IndexSet) (card int) {
	var j int
	for _, i := range s.indices {
		for j < len(other.indices) && other.indices[j] < i {
			j++
		}
		if j == len(other.indices) || other.indices[j] != i {
			card++
		}
	}
	return
}

// Disjoint returns whether s and other have no index in common.
func (s IndexSet) Disjoint(other IndexSet) bool {
	return s.CardDiff(other) == s.Card()
}

// Equal returns whether s and other hold the same indices.
func (s IndexSet) Equal(other IndexSet) bool {
	if len(s.indices) != len(other.indices) {
		return false
	}
	for i := range s.indices {
		if s.indices[i] != other.indices[i] {
			return false
		}
	}
	return true
}

// CopyNew returns a deep copy of the set.
func (s IndexSet) CopyNew() IndexSet {
	indices := make([]int, len(s.indices))
	copy(indices, s.indices)
	return IndexSet{indices: indices}
}

func (s IndexSet) String() string {
	return fmt.Sprintf("%v", s.indices)
}

// BinarySize returns the serialized size of the object in bytes.
func (s IndexSet) BinarySize() int {
	return 8 + 8*len(s.indices)
}

// WriteTo writes the object on an io.Writer. It implements the io.WriterTo
// interface, and will write exactly object.BinarySize() bytes on w.
//
// Unless w implements the buffer.Writer interface (see lattigo/utils/buffer),
// it will be wrapped into a bufio.Writer.
func (s IndexSet) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteAsUint64[int](w, len(s.indices)); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64[int]: %w", err)
		}
		n += inc

		if inc, err = buffer.WriteAsUint64Slice[int](w, s.indices); err != nil {
			return n + inc, fmt.Errorf("buffer.WriteAsUint64Slice[int]: %w", err)
		}
		n += inc

		return n, w.Flush()

	default:
		return s.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads on the object from an io.Writer. It implements the
// io.ReaderFrom interface.
//
// Unless r implements the buffer.Reader interface (see lattigo/utils/buffer),
// it will be wrapped into a bufio.Reader.
func (s *IndexSet) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var inc int64

		var size int
		if inc, err = buffer.ReadAsUint64[int](r, &size); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64[int]: %w", err)
		}
		n += inc

		if cap(s.indices) < size {
			s.indices = make([]int, size)
		}
		s.indices = s.indices[:size]

		if inc, err = buffer.ReadAsUint64Slice[int](r, s.indices); err != nil {
			return n + inc, fmt.Errorf("buffer.ReadAsUint64Slice[int]: %w", err)
		}
		n += inc

		return n, nil

	default:
		return s.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the object into a binary form on a newly allocated
// slice of bytes.
func (s IndexSet) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(s.BinarySize())
	_, err = s.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the object.
func (s *IndexSet) UnmarshalBinary(p []byte) (err error) {
	_, err = s.ReadFrom(buffer.NewBuffer(p))
	return
}
