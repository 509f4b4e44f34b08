package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
)

func TestProject_SortsNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := driven.Snapshot{
		Connectors: []*domain.Connector{
			{ID: "old", CreatedAt: base},
			{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
			{ID: "tie-a", CreatedAt: base.Add(time.Hour)},
			{ID: "tie-b", CreatedAt: base.Add(time.Hour)},
		},
	}

	state := Project(snap)

	var ids []string
	for _, c := range state.Connectors {
		ids = append(ids, c.ID)
	}
	want := []string{"new", "tie-a", "tie-b", "old"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected order %v, got %v", want, ids)
	}
}

func TestProject_DropsOrphansAndResolvesDuplicates(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	snap := driven.Snapshot{
		Connectors: []*domain.Connector{{ID: "c1"}, {ID: "c2"}},
		SyncStates: []*domain.SyncState{
			{ID: "s-old", ConnectorID: "c1", LastSyncAt: &early},
			{ID: "s-new", ConnectorID: "c1", LastSyncAt: &late},
			{ID: "s-a", ConnectorID: "c2"},
			{ID: "s-b", ConnectorID: "c2"},
			{ID: "s-orphan", ConnectorID: "gone"},
		},
	}

	state := Project(snap)

	if len(state.SyncStates) != 2 {
		t.Fatalf("expected 2 sync states, got %d", len(state.SyncStates))
	}
	if state.SyncStates["c1"].ID != "s-new" {
		t.Errorf("expected latest LastSyncAt to win, got %s", state.SyncStates["c1"].ID)
	}
	if state.SyncStates["c2"].ID != "s-b" {
		t.Errorf("expected greatest id to break the tie, got %s", state.SyncStates["c2"].ID)
	}

	orphans := orphanedSyncStates(snap, state)
	got := map[string]bool{}
	for _, o := range orphans {
		got[o.ID] = true
	}
	if len(orphans) != 3 || !got["s-old"] || !got["s-a"] || !got["s-orphan"] {
		t.Errorf("unexpected orphans: %v", got)
	}
}

func TestProject_IsPure(t *testing.T) {
	snap := driven.Snapshot{
		Connectors: []*domain.Connector{
			{ID: "b", CreatedAt: time.Unix(1, 0)},
			{ID: "a", CreatedAt: time.Unix(2, 0)},
		},
		SyncStates: []*domain.SyncState{{ID: "s", ConnectorID: "a"}},
	}

	first := Project(snap)
	second := Project(snap)

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical output for identical input")
	}
	if snap.Connectors[0].ID != "b" {
		t.Error("Project must not reorder its input")
	}

	first.Connectors[0].Name = "changed"
	if snap.Connectors[1].Name != "" {
		t.Error("Project output must not alias its input")
	}
}

func TestProjection_OldStateUnaffectedByWriters(t *testing.T) {
	p := NewProjection()
	p.putConnector(&domain.Connector{ID: "c1", Name: "first"})

	old := p.current()

	p.putConnector(&domain.Connector{ID: "c2"})
	p.putConnector(&domain.Connector{ID: "c1", Name: "renamed"})
	p.removeConnector("c2")

	if len(old.Connectors) != 1 || old.Connectors[0].Name != "first" {
		t.Errorf("published state was modified: %+v", old.Connectors)
	}
	c, ok := p.Connector("c1")
	if !ok || c.Name != "renamed" {
		t.Errorf("expected renamed connector, got %+v", c)
	}
}

func TestProjection_RemoveConnectorDropsSyncState(t *testing.T) {
	p := NewProjection()
	p.putConnector(&domain.Connector{ID: "c1"})
	p.putSyncState(&domain.SyncState{ID: "s1", ConnectorID: "c1"})

	before := p.current()
	p.removeConnector("c1")
	after := p.current()

	if _, ok := before.SyncStates["c1"]; !ok {
		t.Fatal("expected sync state before removal")
	}
	if len(after.Connectors) != 0 || len(after.SyncStates) != 0 {
		t.Errorf("expected both removed in one swap, got %+v", after)
	}
}

func TestProjection_PutSyncStateDropsOrphan(t *testing.T) {
	p := NewProjection()

	if p.putSyncState(&domain.SyncState{ID: "s1", ConnectorID: "c1"}) {
		t.Error("expected sync state without connector to be dropped")
	}
	if _, ok := p.SyncState("c1"); ok {
		t.Error("orphan visible in projection")
	}

	p.putConnector(&domain.Connector{ID: "c1"})
	if !p.putSyncState(&domain.SyncState{ID: "s1", ConnectorID: "c1"}) {
		t.Error("expected sync state kept once the connector exists")
	}
}

func TestProjection_ReadsReturnCopies(t *testing.T) {
	p := NewProjection()
	p.putConnector(&domain.Connector{ID: "c1", Name: "orig"})

	c, _ := p.Connector("c1")
	c.Name = "mutated"

	again, _ := p.Connector("c1")
	if again.Name != "orig" {
		t.Error("caller mutation leaked into projection")
	}
}

func TestProjection_Loading(t *testing.T) {
	p := NewProjection()
	if p.Loading() {
		t.Fatal("expected not loading initially")
	}

	done1 := p.beginLoading()
	done2 := p.beginLoading()
	if !p.Loading() {
		t.Fatal("expected loading")
	}

	done1()
	done1() // extra calls are ignored
	if !p.Loading() {
		t.Fatal("expected loading while a second operation is in flight")
	}

	done2()
	if p.Loading() {
		t.Error("expected loading reset")
	}
}
