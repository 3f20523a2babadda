package exportindex

import (
	"fmt"
	"testing"

	"github.com/leapstack-labs/leapark/internal/testutil"
	"github.com/leapstack-labs/leapark/pkg/domain"
	"github.com/leapstack-labs/leapark/pkg/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func register(t *testing.T, specs ...unit.Spec) *unit.OrderedRegistry {
	t.Helper()
	r := unit.NewOrderedRegistry(domain.NewArena())
	for _, s := range specs {
		_, err := r.Register(s)
		require.NoError(t, err)
	}
	return r
}

func domainOf(t *testing.T, r unit.Registry, id string) domain.Handle {
	t.Helper()
	u, ok := r.UnitByName(id)
	require.True(t, ok, "unit %s", id)
	return u.Domain
}

func TestIndex_FirstWriterWins(t *testing.T) {
	reg := register(t,
		unit.Spec{ID: "U1", Exports: []string{"com.acme.Shared"}},
		unit.Spec{ID: "U2", Exports: []string{"com.acme.Shared", "com.acme.Only2"}},
	)

	x := New(testutil.NewTestLogger(t))
	x.Build(reg.UnitsInOrder())

	got, ok := x.Lookup("com.acme.Shared")
	require.True(t, ok)
	assert.Equal(t, domainOf(t, reg, "U1"), got)

	got, ok = x.Lookup("com.acme.Only2")
	require.True(t, ok)
	assert.Equal(t, domainOf(t, reg, "U2"), got)
}

func TestIndex_OrderDecidesOwner(t *testing.T) {
	reg := register(t,
		unit.Spec{ID: "U2", Exports: []string{"com.acme.Shared"}},
		unit.Spec{ID: "U1", Exports: []string{"com.acme.Shared"}},
	)

	x := New(nil)
	x.Build(reg.UnitsInOrder())

	e, ok := x.Entry("com.acme.Shared")
	require.True(t, ok)
	assert.Equal(t, "U2", e.Unit)
	assert.Equal(t, domainOf(t, reg, "U2"), e.Domain)
}

// Keys are exact export strings. Exporting "com.acme.api." registers that
// literal key; names under it are not found by Lookup.
func TestIndex_ExactKeyNotPrefix(t *testing.T) {
	reg := register(t,
		unit.Spec{ID: "A", Exports: []string{"com.acme.api."}},
		unit.Spec{ID: "B", Exports: []string{"com.acme.api.", "com.acme.b."}},
	)

	x := New(nil)
	x.Build(reg.UnitsInOrder())

	_, ok := x.Lookup("com.acme.api.Foo")
	assert.False(t, ok, "lookup must not match by prefix")

	got, ok := x.Lookup("com.acme.api.")
	require.True(t, ok)
	assert.Equal(t, domainOf(t, reg, "A"), got)

	got, ok = x.Lookup("com.acme.b.")
	require.True(t, ok)
	assert.Equal(t, domainOf(t, reg, "B"), got)

	assert.Equal(t, 2, x.Len())
}

func TestIndex_BuildIsIdempotent(t *testing.T) {
	reg := register(t,
		unit.Spec{ID: "A", Exports: []string{"a.X", "shared.S"}},
		unit.Spec{ID: "B", Exports: []string{"b.Y", "shared.S"}},
	)

	once := New(nil)
	once.Build(reg.UnitsInOrder())

	twice := New(nil)
	twice.Build(reg.UnitsInOrder())
	twice.Build(reg.UnitsInOrder())

	assert.Equal(t, once.Entries(), twice.Entries())
	assert.Equal(t, once.Len(), twice.Len())
}

func TestIndex_IncrementalRegistration(t *testing.T) {
	reg := register(t, unit.Spec{ID: "A", Exports: []string{"s.S"}})

	x := New(nil)
	x.Build(reg.UnitsInOrder())

	_, err := reg.Register(unit.Spec{ID: "B", Exports: []string{"s.S", "b.B"}})
	require.NoError(t, err)
	x.Build(reg.UnitsInOrder())

	e, _ := x.Entry("s.S")
	assert.Equal(t, "A", e.Unit)
	e, _ = x.Entry("b.B")
	assert.Equal(t, "B", e.Unit)
}

func TestIndex_LookupMissing(t *testing.T) {
	x := New(nil)
	h, ok := x.Lookup("nothing")
	assert.False(t, ok)
	assert.Equal(t, domain.None, h)
	assert.Empty(t, x.Entries())
}

func TestIndex_BuildSkipsNilUnits(t *testing.T) {
	x := New(nil)
	x.Build([]*unit.Unit{nil, {ID: "A", Exports: []string{"a"}, Domain: domain.Handle(1)}})
	assert.Equal(t, 1, x.Len())
}

func TestIndex_ConcurrentBuildAndLookup(t *testing.T) {
	var specs []unit.Spec
	for i := 0; i < 50; i++ {
		specs = append(specs, unit.Spec{
			ID:      fmt.Sprintf("U%02d", i),
			Exports: []string{"shared.S", fmt.Sprintf("own.U%02d", i)},
		})
	}
	reg := register(t, specs...)
	units := reg.UnitsInOrder()

	x := New(nil)

	// the first unit is inserted before the race so the shared owner is fixed
	x.Build(units[:1])

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			x.Build(units)
			return nil
		})
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				if h, ok := x.Lookup("shared.S"); !ok || h != units[0].Domain {
					return fmt.Errorf("shared.S resolved to %v (found=%v)", h, ok)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 51, x.Len())
	e, _ := x.Entry("shared.S")
	assert.Equal(t, "U00", e.Unit)
}

func TestIndex_PutReportsInsert(t *testing.T) {
	x := New(nil)
	assert.True(t, x.Put("n", "A", domain.Handle(1)))
	assert.False(t, x.Put("n", "B", domain.Handle(2)))
	assert.False(t, x.Put("n", "A", domain.Handle(1)))

	h, _ := x.Lookup("n")
	assert.Equal(t, domain.Handle(1), h)
}

func TestIndex_LogsShadowedExport(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	x := New(logger)

	x.Put("s.S", "A", domain.Handle(1))
	x.Put("s.S", "B", domain.Handle(2))

	assert.True(t, logs.Contains("level=DEBUG", "export shadowed", "owner=A", "ignored=B"))
}
