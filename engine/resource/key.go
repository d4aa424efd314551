package resource

import (
	"strconv"
	"sync/atomic"

	"github.com/twmb/murmur3"
)

// Key identifies a resource within a Registry. A key is either a stable name or a numeric id
// drawn from a KeyGenerator; two keys are equal when the form that is set is equal.
type Key struct {
	name string
	id   uint64
}

// NamedKey returns a key for a stable, caller-chosen name.
//
// Parameters:
//   - name: the resource name
//
// Returns:
//   - Key: the key
func NamedKey(name string) Key {
	return Key{name: name}
}

// IDKey returns a key for a numeric id, normally taken from a KeyGenerator.
//
// Parameters:
//   - id: the numeric id
//
// Returns:
//   - Key: the key
func IDKey(id uint64) Key {
	return Key{id: id}
}

// ContentKey derives a name key from source bytes so identical sources share one resource.
// The prefix namespaces the digest, for example by resource kind.
//
// Parameters:
//   - prefix: the namespace for the digest
//   - data: the source bytes
//
// Returns:
//   - Key: the key
func ContentKey(prefix string, data []byte) Key {
	hasher := murmur3.New64()
	hasher.Write(data)
	return Key{name: prefix + ":" + strconv.FormatUint(hasher.Sum64(), 16)}
}

// IsZero reports whether neither form is set.
func (k Key) IsZero() bool {
	return k.name == "" && k.id == 0
}

// Name returns the key's name and whether the key is a named key.
func (k Key) Name() (string, bool) {
	return k.name, k.name != ""
}

// ID returns the key's numeric id and whether the key is an id key.
func (k Key) ID() (uint64, bool) {
	return k.id, k.name == "" && k.id != 0
}

func (k Key) String() string {
	if k.name != "" {
		return k.name
	}
	return "#" + strconv.FormatUint(k.id, 10)
}

// flightKey is the singleflight group key; the prefix keeps names and ids from colliding.
func (k Key) flightKey() string {
	if k.name != "" {
		return "n:" + k.name
	}
	return "i:" + strconv.FormatUint(k.id, 10)
}

// KeyGenerator hands out numeric resource keys. Keys from one generator are unique and increase
// monotonically.
type KeyGenerator interface {
	// Next returns a fresh key.
	//
	// Returns:
	//   - Key: the new id key
	Next() Key
}

type counterKeyGenerator struct {
	next atomic.Uint64
}

var _ KeyGenerator = &counterKeyGenerator{}

// NewKeyGenerator creates a KeyGenerator starting at 1. Registries sharing a generator never hand
// out the same id twice.
//
// Returns:
//   - KeyGenerator: the new generator
func NewKeyGenerator() KeyGenerator {
	return &counterKeyGenerator{}
}

func (g *counterKeyGenerator) Next() Key {
	return IDKey(g.next.Add(1))
}
