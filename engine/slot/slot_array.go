package slot

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

// AnyOrdinal requests that Add place the value in any free slot instead of a specific device ordinal.
const AnyOrdinal = -1

var (
	// ErrDuplicateValue is returned by Add when the value already occupies a slot.
	ErrDuplicateValue = errors.New("slot: value already registered")

	// ErrValueNotFound is returned when a value lookup misses.
	ErrValueNotFound = errors.New("slot: value not registered")

	// ErrModifiedDuringIteration is returned by Range when the slot count shrinks while enumerating.
	ErrModifiedDuringIteration = errors.New("slot: array shrank during enumeration")
)

// DeviceSlotArray is a sparse, index-addressable container associating one payload with a
// small integer, normally a device ordinal. It keeps a side mapping from value to index so that
// membership checks and removals by value are O(1).
//
// A slot is either empty or holds exactly one live value, and a value occupies at most one slot.
// Freed slots at the tail of the array are reused by the next insertion before the array grows.
//
// All methods are safe for concurrent use. Readers (Get, Has, Range) share a coarse RW lock with
// writers (Add, Remove, Clear), so background loaders can mutate slots while a render goroutine
// enumerates them.
type DeviceSlotArray[T comparable] struct {
	mu    sync.RWMutex
	slots []T
	used  []bool
	index map[T]int
	count int
}

// NewDeviceSlotArray creates an empty DeviceSlotArray.
//
// Returns:
//   - *DeviceSlotArray[T]: the new array
func NewDeviceSlotArray[T comparable]() *DeviceSlotArray[T] {
	return &DeviceSlotArray[T]{
		index: make(map[T]int),
	}
}

// Add stores value in the slot keyed by ordinal when that slot is free, growing the array up to
// the ordinal when needed. When the ordinal slot is taken, or ordinal is AnyOrdinal, the first
// slot of the trailing run of empty slots is reused; when the last slot is occupied the value is
// appended.
//
// Parameters:
//   - ordinal: the preferred slot index, or AnyOrdinal
//   - value: the value to store
//
// Returns:
//   - int: the index the value was stored at
//   - error: ErrDuplicateValue if value is already stored
func (a *DeviceSlotArray[T]) Add(ordinal int, value T) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i, exists := a.index[value]; exists {
		return -1, fmt.Errorf("%w at index %d", ErrDuplicateValue, i)
	}

	i := -1
	if ordinal >= 0 {
		if ordinal >= len(a.slots) {
			a.grow(ordinal + 1)
		}
		if !a.used[ordinal] {
			i = ordinal
		}
	}
	if i < 0 {
		i = a.freeTail()
	}

	a.slots[i] = value
	a.used[i] = true
	a.index[value] = i
	a.count++
	return i, nil
}

// freeTail returns the lowest index of the trailing run of empty slots, appending a slot when the
// last one is occupied. Holes in the middle of the array are left for ordinal-keyed inserts.
func (a *DeviceSlotArray[T]) freeTail() int {
	i := len(a.slots)
	for i > 0 && !a.used[i-1] {
		i--
	}
	if i == len(a.slots) {
		a.grow(i + 1)
	}
	return i
}

func (a *DeviceSlotArray[T]) grow(n int) {
	for len(a.slots) < n {
		var zero T
		a.slots = append(a.slots, zero)
		a.used = append(a.used, false)
	}
}

// Get returns the value stored at index. Out-of-range and empty indices report false.
//
// Parameters:
//   - index: the slot index
//
// Returns:
//   - T: the stored value, or the zero value
//   - bool: true if the slot is occupied
func (a *DeviceSlotArray[T]) Get(index int) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var zero T
	if index < 0 || index >= len(a.slots) || !a.used[index] {
		return zero, false
	}
	return a.slots[index], true
}

// Has reports whether the slot at index is occupied.
//
// Parameters:
//   - index: the slot index
//
// Returns:
//   - bool: true if occupied
func (a *DeviceSlotArray[T]) Has(index int) bool {
	_, ok := a.Get(index)
	return ok
}

// IndexOf returns the slot index holding value.
//
// Parameters:
//   - value: the value to look up
//
// Returns:
//   - int: the slot index
//   - error: ErrValueNotFound if the value is not stored
func (a *DeviceSlotArray[T]) IndexOf(value T) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	i, exists := a.index[value]
	if !exists {
		return -1, ErrValueNotFound
	}
	return i, nil
}

// Remove frees the slot holding value.
//
// Parameters:
//   - value: the value to remove
//
// Returns:
//   - error: ErrValueNotFound if the value is not stored
func (a *DeviceSlotArray[T]) Remove(value T) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, exists := a.index[value]
	if !exists {
		return ErrValueNotFound
	}
	a.free(i)
	return nil
}

// RemoveAt frees the slot at index and returns the value it held.
// Removing an empty or out-of-range slot is a no-op.
//
// Parameters:
//   - index: the slot index
//
// Returns:
//   - T: the removed value, or the zero value
//   - bool: true if a value was removed
func (a *DeviceSlotArray[T]) RemoveAt(index int) (T, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var zero T
	if index < 0 || index >= len(a.slots) || !a.used[index] {
		return zero, false
	}
	v := a.slots[index]
	a.free(index)
	return v, true
}

func (a *DeviceSlotArray[T]) free(i int) {
	var zero T
	delete(a.index, a.slots[i])
	a.slots[i] = zero
	a.used[i] = false
	a.count--
}

// Clear empties the array and releases its slots.
func (a *DeviceSlotArray[T]) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.slots = nil
	a.used = nil
	a.index = make(map[T]int)
	a.count = 0
}

// Len returns the number of occupied slots.
func (a *DeviceSlotArray[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Cap returns the number of slots, occupied or not.
func (a *DeviceSlotArray[T]) Cap() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots)
}

// Range calls fn for each occupied slot in ascending index order, skipping holes, until fn returns
// false. The lock is taken per slot so writers can proceed between calls; slots added past the
// initial length are not visited.
//
// Parameters:
//   - fn: the visitor, receiving the index and value
//
// Returns:
//   - error: ErrModifiedDuringIteration if the array shrank below its length at the start of the walk
func (a *DeviceSlotArray[T]) Range(fn func(index int, value T) bool) error {
	a.mu.RLock()
	n := len(a.slots)
	a.mu.RUnlock()

	for i := 0; i < n; i++ {
		a.mu.RLock()
		if len(a.slots) < n {
			a.mu.RUnlock()
			return fmt.Errorf("%w: length %d at start, now %d", ErrModifiedDuringIteration, n, len(a.slots))
		}
		v, occupied := a.slots[i], a.used[i]
		a.mu.RUnlock()

		if !occupied {
			continue
		}
		if !fn(i, v) {
			return nil
		}
	}
	return nil
}

// All returns an iterator over occupied slots in ascending index order.
// It panics with ErrModifiedDuringIteration if the array shrinks mid-walk; use Range to receive
// that condition as an error instead.
//
// Returns:
//   - iter.Seq2[int, T]: the index/value iterator
func (a *DeviceSlotArray[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if err := a.Range(yield); err != nil {
			panic(err)
		}
	}
}

// Snapshot copies the occupied slots into a map keyed by index.
//
// Returns:
//   - map[int]T: the occupied slots
func (a *DeviceSlotArray[T]) Snapshot() map[int]T {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[int]T, a.count)
	for i, v := range a.slots {
		if a.used[i] {
			out[i] = v
		}
	}
	return out
}
