package slot

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct{ name string }

func TestAddUsesOrdinalSlot(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()

	p0, p2 := &payload{"dev0"}, &payload{"dev2"}
	i, err := a.Add(2, p2)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	i, err = a.Add(0, p0)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	assert.Equal(t, 3, a.Cap())
	assert.Equal(t, 2, a.Len())
	assert.False(t, a.Has(1))
}

func TestAddRejectsDuplicateValue(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	p := &payload{"x"}

	_, err := a.Add(0, p)
	require.NoError(t, err)

	_, err = a.Add(1, p)
	assert.ErrorIs(t, err, ErrDuplicateValue)
	assert.Equal(t, 1, a.Len())
}

func TestAddReusesTrailingRun(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	vals := []*payload{{"a"}, {"b"}, {"c"}, {"d"}}
	for _, v := range vals {
		_, err := a.Add(AnyOrdinal, v)
		require.NoError(t, err)
	}

	// free a hole in the middle and the two tail slots
	_, ok := a.RemoveAt(1)
	require.True(t, ok)
	_, ok = a.RemoveAt(2)
	require.True(t, ok)
	_, ok = a.RemoveAt(3)
	require.True(t, ok)

	// the trailing run starts at 1 (slots 1..3 are empty), so it is reused before growing
	i, err := a.Add(AnyOrdinal, &payload{"e"})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, 4, a.Cap())
}

func TestAddSkipsMiddleHoleWhenTailOccupied(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	for _, v := range []*payload{{"a"}, {"b"}, {"c"}} {
		_, err := a.Add(AnyOrdinal, v)
		require.NoError(t, err)
	}
	_, ok := a.RemoveAt(1)
	require.True(t, ok)

	i, err := a.Add(AnyOrdinal, &payload{"d"})
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	// an ordinal-keyed insert still fills the hole
	i, err = a.Add(1, &payload{"e"})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestAddFallsBackWhenOrdinalTaken(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	_, err := a.Add(0, &payload{"a"})
	require.NoError(t, err)

	i, err := a.Add(0, &payload{"b"})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestGetOutOfRange(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()

	v, ok := a.Get(-1)
	assert.False(t, ok)
	assert.Nil(t, v)

	v, ok = a.Get(42)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestRemoveAndIndexOf(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	p := &payload{"a"}

	_, err := a.IndexOf(p)
	assert.ErrorIs(t, err, ErrValueNotFound)
	assert.ErrorIs(t, a.Remove(p), ErrValueNotFound)

	_, err = a.Add(3, p)
	require.NoError(t, err)
	i, err := a.IndexOf(p)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	require.NoError(t, a.Remove(p))
	assert.False(t, a.Has(3))
	assert.Equal(t, 0, a.Len())

	_, ok := a.RemoveAt(3)
	assert.False(t, ok)
}

func TestRangeSkipsHolesInOrder(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	p1, p3, p4 := &payload{"1"}, &payload{"3"}, &payload{"4"}
	_, _ = a.Add(4, p4)
	_, _ = a.Add(1, p1)
	_, _ = a.Add(3, p3)

	var seen []int
	for i, v := range a.All() {
		seen = append(seen, i)
		got, ok := a.Get(i)
		require.True(t, ok)
		assert.Same(t, got, v)
	}
	assert.Equal(t, []int{1, 3, 4}, seen)
}

func TestRangeReportsShrink(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	for i := 0; i < 4; i++ {
		_, _ = a.Add(i, &payload{})
	}

	err := a.Range(func(i int, _ *payload) bool {
		if i == 1 {
			a.Clear()
		}
		return true
	})
	assert.ErrorIs(t, err, ErrModifiedDuringIteration)
}

func TestClear(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	p := &payload{}
	_, _ = a.Add(0, p)
	a.Clear()

	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, a.Cap())
	_, err := a.IndexOf(p)
	assert.ErrorIs(t, err, ErrValueNotFound)
}

// Random add/remove sequences must keep get(index_of(v)) == v and never share an index.
func TestRandomChurnKeepsIndexInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := NewDeviceSlotArray[*payload]()
	live := map[*payload]bool{}

	for step := 0; step < 2000; step++ {
		if len(live) == 0 || rng.Intn(3) > 0 {
			p := &payload{}
			ordinal := AnyOrdinal
			if rng.Intn(2) == 0 {
				ordinal = rng.Intn(8)
			}
			_, err := a.Add(ordinal, p)
			require.NoError(t, err)
			live[p] = true
		} else {
			for p := range live {
				require.NoError(t, a.Remove(p))
				delete(live, p)
				break
			}
		}

		indices := map[int]bool{}
		for p := range live {
			i, err := a.IndexOf(p)
			require.NoError(t, err)
			got, ok := a.Get(i)
			require.True(t, ok)
			require.Same(t, p, got)
			require.False(t, indices[i], "index %d shared", i)
			indices[i] = true
		}
		require.Equal(t, len(live), a.Len())
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	a := NewDeviceSlotArray[*payload]()
	for i := 0; i < 16; i++ {
		_, _ = a.Add(i, &payload{})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for n := 0; n < 500; n++ {
			p := &payload{}
			if i, err := a.Add(AnyOrdinal, p); err == nil {
				a.RemoveAt(i)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for n := 0; n < 500; n++ {
			assert.NoError(t, a.Range(func(int, *payload) bool { return true }))
		}
	}()
	wg.Wait()
}
