package modchain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexSet(t *testing.T) {

	t.Run("Insert", func(t *testing.T) {

		var s IndexSet
		require.True(t, s.Empty())
		require.Equal(t, -1, s.First())
		require.Equal(t, -1, s.Last())

		for _, i := range []int{5, 1, 3, 1, 5} {
			s.Insert(i)
		}

		require.Equal(t, 3, s.Card())
		require.Equal(t, []int{1, 3, 5}, s.Indices())
		require.Equal(t, 1, s.First())
		require.Equal(t, 5, s.Last())
		require.True(t, s.Contains(3))
		require.False(t, s.Contains(2))

		// First/Next walk the set in increasing order
		var walked []int
		for i := s.First(); i != -1; i = s.Next(i) {
			walked = append(walked, i)
		}
		require.Equal(t, s.Indices(), walked)
		require.Equal(t, 3, s.Next(1))
		require.Equal(t, 3, s.Next(2))
		require.Equal(t, -1, s.Next(5))
	})

	t.Run("Union", func(t *testing.T) {

		a := NewIndexSet(0, 2, 4)
		b := NewIndexSet(1, 2, 3)

		u := a.Union(b)
		require.Equal(t, []int{0, 1, 2, 3, 4}, u.Indices())

		// value semantics: the union does not alias its operands
		u.Insert(7)
		require.False(t, a.Contains(7))
		require.False(t, b.Contains(7))
	})

	t.Run("CardDiff", func(t *testing.T) {

		a := NewIndexSet(0, 2, 4, 6)
		b := NewIndexSet(2, 3, 6)

		require.Equal(t, 2, a.CardDiff(b)) // {0, 4}
		require.Equal(t, 1, b.CardDiff(a)) // {3}
		require.Equal(t, 0, a.CardDiff(a))
		require.Equal(t, a.Card(), a.CardDiff(IndexSet{}))

		require.True(t, NewIndexSet(0, 1).Disjoint(NewIndexSet(2, 3)))
		require.False(t, a.Disjoint(b))
	})

	t.Run("Equal", func(t *testing.T) {

		a := NewIndexSet(3, 1, 2)
		b := NewIndexSet(1, 2, 3)
		require.True(t, a.Equal(b))

		b.Insert(0)
		require.False(t, a.Equal(b))

		c := a.CopyNew()
		require.True(t, a.Equal(c))
		c.Insert(9)
		require.False(t, a.Equal(c))
	})

	t.Run("Serialization", func(t *testing.T) {

		for _, s := range []IndexSet{{}, NewIndexSet(0), NewIndexSet(1, 3, 4, 17)} {

			p, err := s.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, s.BinarySize(), len(p))

			var sNew IndexSet
			require.NoError(t, sNew.UnmarshalBinary(p))
			require.True(t, s.Equal(sNew))
		}
	})
}
