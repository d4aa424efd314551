package resource_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counter is a minimal resource whose payload is the number of loads performed so far.
type counter struct {
	key       resource.Key
	kind      resource.Kind
	instances *resource.Instances[int]
	loads     atomic.Int32
	unloads   atomic.Int32
	failNext  atomic.Bool
	onLoad    func(dev device.Device, reg resource.Registry) error
}

func newCounter(key resource.Key) *counter {
	return &counter{key: key, kind: resource.KindTexture, instances: resource.NewInstances[int]()}
}

func (c *counter) Kind() resource.Kind { return c.kind }
func (c *counter) Key() resource.Key   { return c.key }

func (c *counter) Load(dev device.Device, reg resource.Registry) error {
	return c.instances.Load(dev, func() (int, error) {
		if c.failNext.CompareAndSwap(true, false) {
			return 0, errors.New("upload failed")
		}
		if c.onLoad != nil {
			if err := c.onLoad(dev, reg); err != nil {
				return 0, err
			}
		}
		return int(c.loads.Add(1)), nil
	})
}

func (c *counter) Unload(dev device.Device) {
	if _, ok := c.instances.Unload(dev); ok {
		c.unloads.Add(1)
	}
}

func (c *counter) IsLoaded(dev device.Device) bool { return c.instances.IsLoaded(dev) }

func (c *counter) Invalidate(dev device.Device) { c.instances.Invalidate(dev) }

func newTestDevice(ordinal int) device.Device {
	return device.NewDevice(ordinal, recording_backend.New())
}

func counterFactory(built *atomic.Int32, out **counter) resource.Factory {
	return func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		built.Add(1)
		c := newCounter(key)
		if out != nil {
			*out = c
		}
		return c, nil
	}
}

func TestKeyForms(t *testing.T) {
	assert.Equal(t, resource.NamedKey("a"), resource.NamedKey("a"))
	assert.NotEqual(t, resource.NamedKey("a"), resource.IDKey(1))
	assert.True(t, resource.Key{}.IsZero())

	gen := resource.NewKeyGenerator()
	k1, k2 := gen.Next(), gen.Next()
	id1, ok := k1.ID()
	require.True(t, ok)
	id2, _ := k2.ID()
	assert.Less(t, id1, id2)

	c1 := resource.ContentKey("tex", []byte("pixels"))
	c2 := resource.ContentKey("tex", []byte("pixels"))
	c3 := resource.ContentKey("tex", []byte("other"))
	assert.Equal(t, c1, c2)
	assert.NotEqual(t, c1, c3)
	name, ok := c1.Name()
	assert.True(t, ok)
	assert.Contains(t, name, "tex:")
}

func TestGetOrCreateRunsFactoryOnceUnderContention(t *testing.T) {
	reg := resource.NewRegistry(newTestDevice(0))
	var built atomic.Int32
	factory := counterFactory(&built, nil)

	var wg sync.WaitGroup
	results := make([]resource.Resource, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := reg.GetOrCreate(resource.NamedKey("shared"), resource.KindTexture, factory)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, res := range results {
		assert.Same(t, results[0], res)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestFactoryErrorStoresNothing(t *testing.T) {
	reg := resource.NewRegistry(newTestDevice(0))
	boom := errors.New("import failed")

	_, err := reg.GetOrCreate(resource.NamedKey("x"), resource.KindTexture, func(resource.Key, resource.KeyGenerator) (resource.Resource, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, reg.Len())
}

func TestAcquireLoadsOnce(t *testing.T) {
	dev := newTestDevice(0)
	reg := resource.NewRegistry(dev)
	var built atomic.Int32
	var c *counter

	_, err := reg.Acquire(resource.NamedKey("a"), resource.KindTexture, counterFactory(&built, &c))
	require.NoError(t, err)
	_, err = reg.Acquire(resource.NamedKey("a"), resource.KindTexture, counterFactory(&built, &c))
	require.NoError(t, err)

	assert.Equal(t, int32(1), built.Load())
	assert.Equal(t, int32(1), c.loads.Load())
	assert.True(t, c.IsLoaded(dev))
}

func TestAcquireEvictsOnFailedLoad(t *testing.T) {
	dev := newTestDevice(0)
	var hooked []error
	reg := resource.NewRegistry(dev, resource.WithLoadHook(func(_ resource.Key, _ resource.Kind, err error) {
		hooked = append(hooked, err)
	}))
	var built atomic.Int32

	failing := func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		built.Add(1)
		c := newCounter(key)
		c.failNext.Store(built.Load() == 1)
		return c, nil
	}

	_, err := reg.Acquire(resource.NamedKey("flaky"), resource.KindTexture, failing)
	require.Error(t, err)
	_, ok := reg.Get(resource.NamedKey("flaky"))
	assert.False(t, ok)

	res, err := reg.Acquire(resource.NamedKey("flaky"), resource.KindTexture, failing)
	require.NoError(t, err)
	assert.True(t, res.IsLoaded(dev))
	assert.Equal(t, int32(2), built.Load())
	require.Len(t, hooked, 2)
	assert.Error(t, hooked[0])
	assert.NoError(t, hooked[1])
}

func TestKindMismatchPanics(t *testing.T) {
	reg := resource.NewRegistry(newTestDevice(0))
	var built atomic.Int32
	_, err := reg.GetOrCreate(resource.NamedKey("k"), resource.KindTexture, counterFactory(&built, nil))
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = reg.GetOrCreate(resource.NamedKey("k"), resource.KindMaterial, counterFactory(&built, nil))
	})
}

func TestAsPanicsOnTypeMismatch(t *testing.T) {
	res := newCounter(resource.NamedKey("c"))
	assert.Same(t, res, resource.As[*counter](res))

	type other struct{ *counter }
	assert.Panics(t, func() { resource.As[*other](res) })
}

func TestDefaultIsLazyAndShared(t *testing.T) {
	var built atomic.Int32
	reg := resource.NewRegistry(newTestDevice(0),
		resource.WithDefault(resource.KindTexture, counterFactory(&built, nil)))

	assert.Equal(t, 0, reg.Len())
	a, err := reg.Default(resource.KindTexture)
	require.NoError(t, err)
	b, err := reg.Default(resource.KindTexture)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), built.Load())
	assert.Equal(t, resource.DefaultKey(resource.KindTexture), a.Key())

	_, err = reg.Default(resource.KindGeometry)
	assert.ErrorIs(t, err, resource.ErrNoDefault)
}

func TestFactoriesReceiveInjectedKeyGenerator(t *testing.T) {
	gen := resource.NewKeyGenerator()
	reg := resource.NewRegistry(newTestDevice(0), resource.WithKeyGenerator(gen))

	var seen resource.KeyGenerator
	_, err := reg.GetOrCreate(resource.NamedKey("k"), resource.KindTexture, func(key resource.Key, keys resource.KeyGenerator) (resource.Resource, error) {
		seen = keys
		return newCounter(key), nil
	})
	require.NoError(t, err)
	assert.Same(t, gen, seen)
	assert.Same(t, gen, reg.KeyGenerator())
}

func TestUnloadIsIdempotent(t *testing.T) {
	dev := newTestDevice(0)
	reg := resource.NewRegistry(dev)
	var built atomic.Int32
	var c *counter
	_, err := reg.Acquire(resource.NamedKey("a"), resource.KindTexture, counterFactory(&built, &c))
	require.NoError(t, err)

	assert.True(t, reg.Unload(resource.NamedKey("a")))
	assert.False(t, reg.Unload(resource.NamedKey("a")))
	c.Unload(dev)
	assert.Equal(t, int32(1), c.unloads.Load())

	never := newCounter(resource.NamedKey("never"))
	never.Unload(dev)
	assert.Equal(t, int32(0), never.unloads.Load())
}

func TestUnloadAllEmptiesInReverseOrder(t *testing.T) {
	dev := newTestDevice(0)
	reg := resource.NewRegistry(dev)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		_, err := reg.Acquire(resource.NamedKey(name), resource.KindTexture, func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
			return &orderedUnload{counter: newCounter(key), log: &order}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []resource.Key{resource.NamedKey("first"), resource.NamedKey("second"), resource.NamedKey("third")}, reg.Keys())

	reg.UnloadAll()
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Equal(t, 0, reg.Len())
}

type orderedUnload struct {
	*counter
	log *[]string
}

func (o *orderedUnload) Unload(dev device.Device) {
	o.counter.Unload(dev)
	name, _ := o.Key().Name()
	*o.log = append(*o.log, name)
}

func TestInvalidateDropsWithoutUnload(t *testing.T) {
	mgr := device.NewManager()
	dev := mgr.Enumerate(recording_backend.New())
	reg := resource.NewRegistry(dev)
	var built atomic.Int32
	var c *counter
	_, err := reg.Acquire(resource.NamedKey("a"), resource.KindTexture, counterFactory(&built, &c))
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(dev.Ordinal()))
	assert.False(t, c.IsLoaded(dev))

	reg.Invalidate()
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, int32(0), c.unloads.Load())
	assert.Equal(t, resource.StateUnloaded, c.instances.State(dev))
}

func TestReentrantLoadBreaksCycle(t *testing.T) {
	dev := newTestDevice(0)
	reg := resource.NewRegistry(dev)
	var built atomic.Int32

	aKey, bKey := resource.NamedKey("a"), resource.NamedKey("b")
	var a *counter
	_, err := reg.Acquire(aKey, resource.KindTexture, func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		a = newCounter(key)
		a.onLoad = func(dev device.Device, reg resource.Registry) error {
			// b depends on a again; a is Loading, so the nested load is a no-op
			_, err := reg.Acquire(bKey, resource.KindTexture, func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
				b := newCounter(key)
				b.onLoad = func(dev device.Device, reg resource.Registry) error {
					_, err := reg.Acquire(aKey, resource.KindTexture, counterFactory(&built, nil))
					return err
				}
				return b, nil
			})
			return err
		}
		return a, nil
	})
	require.NoError(t, err)
	assert.True(t, a.IsLoaded(dev))
	assert.Equal(t, int32(0), built.Load())
}
