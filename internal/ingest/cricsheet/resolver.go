package cricsheet

import (
	"context"
	"fmt"

	"github.com/fortuna/crease/internal/metrics"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// EntityKind names the table a Resolver writes to.
type EntityKind string

const (
	KindTeam   EntityKind = "team"
	KindPlayer EntityKind = "player"
)

// IDMap maps natural-key names to surrogate ids. A run owns a root map;
// each document resolves through a child scope whose entries reach the root
// only through Commit, so ids created by a rolled-back transaction are never
// reused.
type IDMap struct {
	parent *IDMap
	ids    map[string]int64
}

// NewIDMap returns an empty root map.
func NewIDMap() *IDMap {
	return &IDMap{ids: make(map[string]int64)}
}

// Scope returns a child map that reads through to m.
func (m *IDMap) Scope() *IDMap {
	return &IDMap{parent: m, ids: make(map[string]int64)}
}

// Lookup checks m and then its ancestors.
func (m *IDMap) Lookup(name string) (int64, bool) {
	for cur := m; cur != nil; cur = cur.parent {
		if id, ok := cur.ids[name]; ok {
			return id, true
		}
	}
	return 0, false
}

func (m *IDMap) Store(name string, id int64) {
	m.ids[name] = id
}

// Commit moves the scope's entries into its parent and empties the scope.
// It is a no-op on a root map.
func (m *IDMap) Commit() {
	if m.parent == nil {
		return
	}
	for name, id := range m.ids {
		m.parent.ids[name] = id
	}
	clear(m.ids)
}

// Len counts the entries held directly by m.
func (m *IDMap) Len() int {
	return len(m.ids)
}

// Identities groups the id maps for both entity kinds.
type Identities struct {
	Teams   *IDMap
	Players *IDMap
}

func NewIdentities() *Identities {
	return &Identities{Teams: NewIDMap(), Players: NewIDMap()}
}

// Scope opens a per-document staging scope on both maps.
func (i *Identities) Scope() *Identities {
	return &Identities{Teams: i.Teams.Scope(), Players: i.Players.Scope()}
}

// Commit publishes a document scope to its parents.
func (i *Identities) Commit() {
	i.Teams.Commit()
	i.Players.Commit()
}

type insertOrFetchFunc func(ctx context.Context, q store.Executor, name string) (int64, bool, error)

// Resolver turns names of one entity kind into surrogate ids.
type Resolver struct {
	kind          EntityKind
	insertOrFetch insertOrFetchFunc
}

func NewTeamResolver() *Resolver {
	return &Resolver{
		kind: KindTeam,
		insertOrFetch: func(ctx context.Context, q store.Executor, name string) (int64, bool, error) {
			return repository.NewTeamRepository(q).InsertOrFetch(ctx, name)
		},
	}
}

func NewPlayerResolver() *Resolver {
	return &Resolver{
		kind: KindPlayer,
		insertOrFetch: func(ctx context.Context, q store.Executor, name string) (int64, bool, error) {
			return repository.NewPlayerRepository(q).InsertOrFetch(ctx, name)
		},
	}
}

func (r *Resolver) Kind() EntityKind {
	return r.kind
}

// Resolve returns the id for name. A hit in ids costs no statements;
// otherwise the name is inserted or fetched through q and recorded in ids.
func (r *Resolver) Resolve(ctx context.Context, q store.Executor, ids *IDMap, name string) (int64, error) {
	if id, ok := ids.Lookup(name); ok {
		metrics.EntityResolutions.WithLabelValues(string(r.kind), "cache").Inc()
		return id, nil
	}

	id, inserted, err := r.insertOrFetch(ctx, q, name)
	if err != nil {
		return 0, fmt.Errorf("resolve %s %q: %w", r.kind, name, err)
	}

	source := "fetched"
	if inserted {
		source = "inserted"
	}
	metrics.EntityResolutions.WithLabelValues(string(r.kind), source).Inc()

	ids.Store(name, id)
	return id, nil
}
