package graph

import (
	"path/filepath"
	"testing"

	"dmf/internal/resource"
	"dmf/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "resourcedb.json"))
	require.NoError(t, err)
	return s
}

func addResource(t *testing.T, s *store.Store, name string) *resource.Resource {
	t.Helper()
	r := resource.New(resource.TypeData)
	r.Aliases = append(r.Aliases, name)
	require.NoError(t, s.Add(r))
	return r
}

func TestCreateRelationMirrorsBothHalves(t *testing.T) {
	a := resource.New(resource.TypeData)
	b := resource.New(resource.TypeData)

	require.NoError(t, CreateRelation(a, b, resource.PredicateDerived))

	require.Len(t, a.Relations, 1)
	assert.Equal(t, resource.Relation{
		Predicate:  resource.PredicateDerived,
		Identifier: b.ID,
		Role:       resource.RoleSubject,
	}, a.Relations[0])

	require.Len(t, b.Relations, 1)
	assert.Equal(t, resource.Relation{
		Predicate:  resource.PredicateDerived,
		Identifier: a.ID,
		Role:       resource.RoleObject,
	}, b.Relations[0])
}

func TestCreateRelationErrors(t *testing.T) {
	a := resource.New(resource.TypeData)
	b := resource.New(resource.TypeData)

	err := CreateRelation(a, b, "causes")
	assert.ErrorIs(t, err, ErrBadPredicate)
	assert.Empty(t, a.Relations, "failed create must not mutate endpoints")

	err = CreateRelation(a, a, resource.PredicateUses)
	assert.ErrorIs(t, err, ErrSelfRelation)

	require.NoError(t, CreateRelation(a, b, resource.PredicateUses))
	err = CreateRelation(a, b, resource.PredicateUses)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, a.Relations, 1)
	assert.Len(t, b.Relations, 1)

	// Same endpoints under a different predicate is a distinct edge.
	assert.NoError(t, CreateRelation(a, b, resource.PredicateContains))
}

func TestCreateRelationDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resourcedb.json")
	s, err := store.Open(path)
	require.NoError(t, err)

	a := resource.New(resource.TypeData)
	b := resource.New(resource.TypeData)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	require.NoError(t, CreateRelation(a, b, resource.PredicateDerived))

	reopened, err := store.Open(path)
	require.NoError(t, err)
	got, ok := reopened.Get(a.ID)
	require.True(t, ok)
	assert.Empty(t, got.Relations, "relation must stay in memory until flushed")

	s.Stage(a, b)
	require.NoError(t, s.Update())

	reopened, err = store.Open(path)
	require.NoError(t, err)
	got, ok = reopened.Get(a.ID)
	require.True(t, ok)
	assert.Len(t, got.Relations, 1)
}

func TestRelatedBothDirections(t *testing.T) {
	s := newStore(t)
	a := addResource(t, s, "raw")
	b := addResource(t, s, "cleaned")

	require.NoError(t, CreateRelation(a, b, resource.PredicateDerived))
	s.Stage(a, b)
	require.NoError(t, s.Update())

	// Outgoing from the subject.
	hits, err := Related(s, a, Options{Outgoing: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Depth)
	assert.Equal(t, resource.Triple{
		Subject:   a.ID,
		Predicate: resource.PredicateDerived,
		Object:    b.ID,
	}, hits[0].Triple)

	// The same edge is visible from the object side.
	hits, err = Related(s, b, Options{Outgoing: false})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].Triple.Subject)

	// And absent in the unrelated directions.
	hits, err = Related(s, a, Options{Outgoing: false})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRelatedTransitive(t *testing.T) {
	s := newStore(t)
	a := addResource(t, s, "a")
	b := addResource(t, s, "b")
	c := addResource(t, s, "c")

	require.NoError(t, CreateRelation(a, b, resource.PredicateDerived))
	require.NoError(t, CreateRelation(b, c, resource.PredicateDerived))
	s.Stage(a, b, c)
	require.NoError(t, s.Update())

	hits, err := Related(s, a, Options{Outgoing: true})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, hits[0].Depth)
	assert.Equal(t, b.ID, hits[0].Triple.Object)
	assert.Equal(t, 2, hits[1].Depth)
	assert.Equal(t, c.ID, hits[1].Triple.Object)
}

func TestRelatedMaxDepth(t *testing.T) {
	s := newStore(t)
	a := addResource(t, s, "a")
	b := addResource(t, s, "b")
	c := addResource(t, s, "c")

	require.NoError(t, CreateRelation(a, b, resource.PredicateContains))
	require.NoError(t, CreateRelation(b, c, resource.PredicateContains))
	s.Stage(a, b, c)
	require.NoError(t, s.Update())

	hits, err := Related(s, a, Options{Outgoing: true, MaxDepth: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, b.ID, hits[0].Triple.Object)
}

func TestRelatedTerminatesOnCycle(t *testing.T) {
	s := newStore(t)
	a := addResource(t, s, "a")
	b := addResource(t, s, "b")

	require.NoError(t, CreateRelation(a, b, resource.PredicateUses))
	require.NoError(t, CreateRelation(b, a, resource.PredicateUses))
	s.Stage(a, b)
	require.NoError(t, s.Update())

	hits, err := Related(s, a, Options{Outgoing: true})
	require.NoError(t, err)
	// a->b at depth 1, then b->a at depth 2; the revisit of a stops there.
	assert.Len(t, hits, 2)
}

func TestRelatedSkipsDanglingEndpoints(t *testing.T) {
	s := newStore(t)
	a := addResource(t, s, "a")
	b := addResource(t, s, "b")

	require.NoError(t, CreateRelation(a, b, resource.PredicateVersion))
	s.Stage(a, b)
	require.NoError(t, s.Update())
	require.NoError(t, s.Remove(b.ID))

	hits, err := Related(s, a, Options{Outgoing: true})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRelatedMeta(t *testing.T) {
	s := newStore(t)
	a := addResource(t, s, "a")
	b := addResource(t, s, "b")

	require.NoError(t, CreateRelation(a, b, resource.PredicateDerived))
	s.Stage(a, b)
	require.NoError(t, s.Update())

	hits, err := Related(s, a, Options{Outgoing: true, Meta: []string{"aliases", "type", "missing"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, []interface{}{"b"}, hits[0].Meta["aliases"])
	assert.Equal(t, "data", hits[0].Meta["type"])
	assert.NotContains(t, hits[0].Meta, "missing")
}
