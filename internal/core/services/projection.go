package services

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

// ProjectionState is one immutable view of connectors and sync states.
// Records referenced from a published state are never modified; changes
// always install new records.
type ProjectionState struct {
	// Connectors sorted by CreatedAt, newest first
	Connectors []*domain.Connector

	// SyncStates keyed by connector ID
	SyncStates map[string]*domain.SyncState
}

// Project derives the in-memory view from the full contents of both
// collections. It is pure: the same snapshot always yields the same state,
// so it is safe to call on every observed change.
//
// Sync states whose connector is absent are dropped. When several sync
// states exist for one connector, the one with the latest LastSyncAt wins,
// then the greatest ID.
func Project(snap driven.Snapshot) *ProjectionState {
	state := &ProjectionState{
		Connectors: make([]*domain.Connector, 0, len(snap.Connectors)),
		SyncStates: make(map[string]*domain.SyncState, len(snap.SyncStates)),
	}

	known := make(map[string]bool, len(snap.Connectors))
	for _, c := range snap.Connectors {
		if c == nil || known[c.ID] {
			continue
		}
		known[c.ID] = true
		state.Connectors = append(state.Connectors, c.Clone())
	}
	sortConnectors(state.Connectors)

	for _, s := range snap.SyncStates {
		if s == nil || !known[s.ConnectorID] {
			continue
		}
		if cur, ok := state.SyncStates[s.ConnectorID]; ok && !newerSyncState(s, cur) {
			continue
		}
		state.SyncStates[s.ConnectorID] = s.Clone()
	}

	return state
}

// orphanedSyncStates lists sync states that Project would drop, either
// because their connector is gone or because a newer duplicate wins.
func orphanedSyncStates(snap driven.Snapshot, state *ProjectionState) []*domain.SyncState {
	var orphans []*domain.SyncState
	for _, s := range snap.SyncStates {
		if s == nil {
			continue
		}
		if kept, ok := state.SyncStates[s.ConnectorID]; ok && kept.ID == s.ID {
			continue
		}
		orphans = append(orphans, s)
	}
	return orphans
}

func newerSyncState(a, b *domain.SyncState) bool {
	switch {
	case a.LastSyncAt == nil && b.LastSyncAt != nil:
		return false
	case a.LastSyncAt != nil && b.LastSyncAt == nil:
		return true
	case a.LastSyncAt != nil && !a.LastSyncAt.Equal(*b.LastSyncAt):
		return a.LastSyncAt.After(*b.LastSyncAt)
	}
	return a.ID > b.ID
}

// sortConnectors orders by CreatedAt descending. The sort is stable, so
// connectors created at the same instant keep their insertion order.
func sortConnectors(conns []*domain.Connector) {
	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].CreatedAt.After(conns[j].CreatedAt)
	})
}

// Projection holds the current ProjectionState. Reads are lock-free;
// writers are serialized and publish a modified copy (copy, apply, swap),
// so a reader holding an older state is never affected.
type Projection struct {
	mu      sync.Mutex
	state   atomic.Pointer[ProjectionState]
	loading atomic.Int32
}

// NewProjection creates an empty projection.
func NewProjection() *Projection {
	p := &Projection{}
	p.state.Store(&ProjectionState{SyncStates: map[string]*domain.SyncState{}})
	return p
}

func (p *Projection) current() *ProjectionState {
	return p.state.Load()
}

// update applies fn to a copy of the current state and publishes it.
func (p *Projection) update(fn func(next *ProjectionState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.state.Load()
	next := &ProjectionState{
		Connectors: append([]*domain.Connector(nil), cur.Connectors...),
		SyncStates: make(map[string]*domain.SyncState, len(cur.SyncStates)),
	}
	for k, v := range cur.SyncStates {
		next.SyncStates[k] = v
	}

	fn(next)
	sortConnectors(next.Connectors)
	p.state.Store(next)
}

// Replace installs a freshly projected state.
func (p *Projection) Replace(state *ProjectionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Store(state)
}

func (p *Projection) putConnector(c *domain.Connector) {
	c = c.Clone()
	p.update(func(next *ProjectionState) {
		for i, existing := range next.Connectors {
			if existing.ID == c.ID {
				next.Connectors[i] = c
				return
			}
		}
		next.Connectors = append(next.Connectors, c)
	})
}

// removeConnector drops the connector and its sync state in one swap.
func (p *Projection) removeConnector(id string) {
	p.update(func(next *ProjectionState) {
		for i, existing := range next.Connectors {
			if existing.ID == id {
				next.Connectors = append(next.Connectors[:i], next.Connectors[i+1:]...)
				break
			}
		}
		delete(next.SyncStates, id)
	})
}

// putSyncState installs s and reports whether it was kept. Like Project, it
// drops a sync state whose connector is not in the view.
func (p *Projection) putSyncState(s *domain.SyncState) bool {
	s = s.Clone()
	kept := false
	p.update(func(next *ProjectionState) {
		for _, c := range next.Connectors {
			if c.ID == s.ConnectorID {
				next.SyncStates[s.ConnectorID] = s
				kept = true
				return
			}
		}
	})
	return kept
}

// Connector returns a copy of the connector with the given ID.
func (p *Projection) Connector(id string) (*domain.Connector, bool) {
	for _, c := range p.current().Connectors {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return nil, false
}

// Connectors returns copies of all connectors matching keep, newest first.
// A nil keep returns everything.
func (p *Projection) Connectors(keep func(*domain.Connector) bool) []*domain.Connector {
	conns := p.current().Connectors
	out := make([]*domain.Connector, 0, len(conns))
	for _, c := range conns {
		if keep == nil || keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// SyncState returns a copy of the sync state for a connector.
func (p *Projection) SyncState(connectorID string) (*domain.SyncState, bool) {
	s, ok := p.current().SyncStates[connectorID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// beginLoading marks an operation in flight. The returned func must be
// called exactly once, typically via defer.
func (p *Projection) beginLoading() func() {
	p.loading.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { p.loading.Add(-1) })
	}
}

// Loading reports whether any mutating operation is in flight.
func (p *Projection) Loading() bool {
	return p.loading.Load() > 0
}
