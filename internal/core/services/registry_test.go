package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven/mocks"
)

func TestAddConnector(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.service.AddConnector(ctx, domain.ConnectorInput{
		Provider: domain.ProviderTypeGmail,
		Category: domain.ConnectorCategoryApp,
		Name:     "Work mail",
		Scopes:   []string{"gmail.readonly"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := env.service.GetConnector(id)
	if !ok {
		t.Fatal("expected connector in projection")
	}
	stored, ok := env.backend.ConnectorStore().Peek(id)
	if !ok {
		t.Fatal("expected connector persisted")
	}
	if !reflect.DeepEqual(got, stored) {
		t.Errorf("projection and persistence differ:\n%+v\n%+v", got, stored)
	}
	if got.Status != domain.ConnectorStatusDisconnected {
		t.Errorf("expected default status disconnected, got %s", got.Status)
	}
	if !got.CreatedAt.Equal(env.clock.Now()) || !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("unexpected timestamps: %v %v", got.CreatedAt, got.UpdatedAt)
	}
	if env.service.Loading() {
		t.Error("loading flag not reset")
	}
}

func TestAddConnector_UniqueIDs(t *testing.T) {
	env := newTestEnv(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := env.addConnector(t, appInput(domain.ProviderTypeSlack, "same"))
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if len(env.service.GetConnectors()) != 20 {
		t.Errorf("expected 20 connectors, got %d", len(env.service.GetConnectors()))
	}
}

func TestAddConnector_SortedNewestFirst(t *testing.T) {
	env := newTestEnv(t)

	first := env.addConnector(t, appInput(domain.ProviderTypeSlack, "first"))
	env.clock.Advance(time.Minute)
	second := env.addConnector(t, appInput(domain.ProviderTypeNotion, "second"))
	third := env.addConnector(t, domain.ConnectorInput{
		Provider: domain.ProviderTypeGitHub,
		Category: domain.ConnectorCategoryAPI,
		Name:     "third",
	})
	env.clock.Advance(time.Minute)
	fourth := env.addConnector(t, appInput(domain.ProviderTypeGmail, "fourth"))

	var ids []string
	for _, c := range env.service.GetConnectors() {
		ids = append(ids, c.ID)
	}
	want := []string{fourth, second, third, first}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}

	var appIDs []string
	for _, c := range env.service.GetAppConnectors() {
		appIDs = append(appIDs, c.ID)
	}
	if !reflect.DeepEqual(appIDs, []string{fourth, second, first}) {
		t.Errorf("unexpected app connectors %v", appIDs)
	}
	if len(env.service.GetAPIConnectors()) != 1 || len(env.service.GetMCPConnectors()) != 0 {
		t.Error("unexpected category filter results")
	}
}

func TestAddConnector_InvalidInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.AddConnector(context.Background(), domain.ConnectorInput{Category: "bogus"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if env.backend.ConnectorStore().Count() != 0 {
		t.Error("nothing should be persisted")
	}
	if env.notifier.CountTitle(TitleAddFailed) != 1 {
		t.Error("expected a failure notification")
	}
}

func TestAddConnector_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	cause := errors.New("disk full")
	env.backend.ConnectorStore().PutErr = cause

	_, err := env.service.AddConnector(context.Background(), appInput(domain.ProviderTypeSlack, "x"))
	if !errors.Is(err, domain.ErrPersistence) || !errors.Is(err, cause) {
		t.Fatalf("expected persistence error wrapping cause, got %v", err)
	}
	if len(env.service.GetConnectors()) != 0 {
		t.Error("projection must not change on failed write")
	}
	if env.notifier.CountTitle(TitleAddFailed) != 1 {
		t.Error("expected a failure notification")
	}
	if env.service.Loading() {
		t.Error("loading flag not reset")
	}
}

func TestUpdateConnector_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.addConnector(t, appInput(domain.ProviderTypeSlack, "a"))
	env.addConnector(t, appInput(domain.ProviderTypeGmail, "b"))
	before := env.service.GetConnectors()

	name := "renamed"
	err := env.service.UpdateConnector(context.Background(), "missing", domain.ConnectorPatch{Name: &name})

	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrPersistence) {
		t.Error("not found must not be reported as a persistence failure")
	}
	if after := env.service.GetConnectors(); !reflect.DeepEqual(before, after) {
		t.Error("projection changed on failed update")
	}
	if env.notifier.CountTitle(TitleUpdateFailed) != 1 {
		t.Error("expected a failure notification")
	}
	if env.service.Loading() {
		t.Error("loading flag not reset")
	}
}

func TestUpdateConnector_MergesAndBumpsUpdatedAt(t *testing.T) {
	env := newTestEnv(t)
	id := env.addConnector(t, domain.ConnectorInput{
		Provider:  domain.ProviderTypeNotion,
		Category:  domain.ConnectorCategoryApp,
		Name:      "Notes",
		AccountID: "team-1",
	})
	orig, _ := env.service.GetConnector(id)

	// Clock is frozen; UpdatedAt must still move forward.
	name := "Team notes"
	if err := env.service.UpdateConnector(context.Background(), id, domain.ConnectorPatch{Name: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := env.service.GetConnector(id)
	if err := env.service.UpdateConnector(context.Background(), id, domain.ConnectorPatch{Name: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := env.service.GetConnector(id)

	if first.Name != "Team notes" || first.AccountID != "team-1" {
		t.Errorf("unexpected merge: %+v", first)
	}
	if first.ID != id || !first.CreatedAt.Equal(orig.CreatedAt) {
		t.Error("id and creation time must not change")
	}
	if !first.UpdatedAt.After(orig.UpdatedAt) || !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt must strictly increase: %v %v %v", orig.UpdatedAt, first.UpdatedAt, second.UpdatedAt)
	}
}

func TestUpdateConnector_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	id := env.addConnector(t, domain.ConnectorInput{
		Provider: domain.ProviderTypeSlack,
		Category: domain.ConnectorCategoryApp,
		Status:   domain.ConnectorStatusConnecting,
	})

	err := env.service.SetConnectorStatus(context.Background(), id, domain.ConnectorStatusExpired, "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	c, _ := env.service.GetConnector(id)
	if c.Status != domain.ConnectorStatusConnecting {
		t.Errorf("status should be unchanged, got %s", c.Status)
	}
}

func TestSetConnectorStatus(t *testing.T) {
	env := newTestEnv(t)
	id := env.addConnector(t, appInput(domain.ProviderTypeSlack, "s"))

	if err := env.service.SetConnectorStatus(context.Background(), id, domain.ConnectorStatusError, "rate limited"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := env.service.GetConnector(id)
	if c.Status != domain.ConnectorStatusError || c.ErrorMessage != "rate limited" {
		t.Errorf("unexpected connector: %+v", c)
	}
	if got := env.service.GetConnectorsByStatus(domain.ConnectorStatusError); len(got) != 1 {
		t.Errorf("expected 1 errored connector, got %d", len(got))
	}

	if err := env.service.SetConnectorStatus(context.Background(), id, domain.ConnectorStatusConnected, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ = env.service.GetConnector(id)
	if c.ErrorMessage != "" {
		t.Errorf("expected error message cleared, got %q", c.ErrorMessage)
	}
}

func TestDeleteConnector_RemovesSyncState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addConnector(t, appInput(domain.ProviderTypeGmail, "m"))
	keep := env.addConnector(t, appInput(domain.ProviderTypeSlack, "s"))

	if err := env.service.UpdateSyncState(ctx, id, domain.SyncStatePatch{ItemsSynced: intPtr(3)}, domain.SyncUpdateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := env.service.UpdateSyncState(ctx, keep, domain.SyncStatePatch{}, domain.SyncUpdateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = env.metadata.Put(ctx, &domain.EncryptionMetadata{ConnectorID: id, IV: "iv"})

	if err := env.service.DeleteConnector(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := env.service.GetConnector(id); ok {
		t.Error("connector still in projection")
	}
	if _, ok := env.service.GetSyncState(id); ok {
		t.Error("sync state still in projection")
	}
	if env.backend.ConnectorStore().Count() != 1 || env.backend.SyncStateStore().Count() != 1 {
		t.Error("expected only the other connector's records to remain")
	}
	if env.metadata.Count() != 0 {
		t.Error("expected encryption metadata removed")
	}
	if _, ok := env.service.GetSyncState(keep); !ok {
		t.Error("unrelated sync state removed")
	}

	// Idempotent
	if err := env.service.DeleteConnector(ctx, id); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestDeleteConnector_OrphanSweptOnRefresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.addConnector(t, appInput(domain.ProviderTypeGmail, "m"))
	if err := env.service.UpdateSyncState(ctx, id, domain.SyncStatePatch{}, domain.SyncUpdateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env.backend.SyncStateStore().DeleteErr = errors.New("connection reset")
	if err := env.service.DeleteConnector(ctx, id); err != nil {
		t.Fatalf("delete should succeed when only the sync state write fails: %v", err)
	}
	if _, ok := env.service.GetSyncState(id); ok {
		t.Error("sync state should be gone from the projection")
	}
	if env.backend.SyncStateStore().Count() != 1 {
		t.Fatal("expected orphan left in persistence")
	}

	env.backend.SyncStateStore().DeleteErr = nil
	if err := env.service.RefreshConnectors(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if env.backend.SyncStateStore().Count() != 0 {
		t.Error("expected orphan swept")
	}
}

func TestDeleteConnector_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.addConnector(t, appInput(domain.ProviderTypeGmail, "m"))
	env.backend.ConnectorStore().DeleteErr = errors.New("locked")

	err := env.service.DeleteConnector(context.Background(), id)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, ok := env.service.GetConnector(id); !ok {
		t.Error("connector must remain after failed delete")
	}
	if env.notifier.CountTitle(TitleDeleteFailed) != 1 {
		t.Error("expected a failure notification")
	}
}

func TestRefreshConnectors_ReloadsFromPersistence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.backend.ConnectorStore().Seed(&domain.Connector{
		ID:        "external",
		Category:  domain.ConnectorCategoryMCP,
		Status:    domain.ConnectorStatusConnected,
		CreatedAt: env.clock.Now(),
	})

	if len(env.service.GetConnectors()) != 0 {
		t.Fatal("projection should not see writes made behind its back")
	}
	if err := env.service.RefreshConnectors(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if got := env.service.GetMCPConnectors(); len(got) != 1 || got[0].ID != "external" {
		t.Errorf("expected external connector after refresh, got %v", got)
	}
}

func TestRefreshConnectors_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.backend.ConnectorStore().GetAllErr = errors.New("io")

	err := env.service.RefreshConnectors(context.Background())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if env.notifier.CountTitle(TitleLoadFailed) != 1 {
		t.Error("expected a failure notification")
	}
	if env.service.Loading() {
		t.Error("loading flag not reset")
	}
}

func TestRefreshConnectors_KeepsSyncStateWrittenAfterConnectorRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var id string
	var once sync.Once
	env.backend.ConnectorStore().AfterGetAll = func() {
		once.Do(func() {
			id = env.addConnector(t, appInput(domain.ProviderTypeGoogleDrive, "Drive"))
			if err := env.service.UpdateSyncState(ctx, id, domain.SyncStatePatch{ItemsSynced: intPtr(42)}, domain.SyncUpdateOptions{}); err != nil {
				t.Errorf("UpdateSyncState failed: %v", err)
			}
		})
	}

	if err := env.service.RefreshConnectors(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if env.backend.SyncStateStore().Count() != 1 {
		t.Fatalf("expected the live sync state kept, got %d stored", env.backend.SyncStateStore().Count())
	}

	if err := env.service.RefreshConnectors(ctx); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	state, ok := env.service.GetSyncState(id)
	if !ok || state.ItemsSynced != 42 {
		t.Errorf("expected sync state with 42 items, got %+v", state)
	}
}

func TestRefreshConnectors_KeepsSyncStateWrittenBetweenReads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var id string
	var once sync.Once
	env.backend.SyncStateStore().AfterGetAll = func() {
		once.Do(func() {
			id = env.addConnector(t, appInput(domain.ProviderTypeGoogleDrive, "Drive"))
			if err := env.service.UpdateSyncState(ctx, id, domain.SyncStatePatch{ItemsSynced: intPtr(42)}, domain.SyncUpdateOptions{}); err != nil {
				t.Errorf("UpdateSyncState failed: %v", err)
			}
		})
	}

	if err := env.service.RefreshConnectors(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, ok := env.service.GetConnector(id); !ok {
		t.Error("expected connector in projection")
	}
	if env.backend.SyncStateStore().Count() != 1 {
		t.Fatalf("expected the live sync state kept, got %d stored", env.backend.SyncStateStore().Count())
	}
}

// snapshotBackend serves a fixed snapshot, like a consistent read taken
// before later writes landed.
type snapshotBackend struct {
	*mocks.MockBackend
	snap  driven.Snapshot
	calls int
}

func (b *snapshotBackend) Snapshot(ctx context.Context) (driven.Snapshot, error) {
	b.calls++
	return b.snap, nil
}

func TestRefreshConnectors_UsesSnapshotAndRechecksOrphans(t *testing.T) {
	stores := mocks.NewMockBackend()
	backend := &snapshotBackend{MockBackend: stores}
	env := newTestEnvWithBackend(t, backend, stores)
	ctx := context.Background()

	created := env.clock.Now()
	stores.ConnectorStore().Seed(&domain.Connector{ID: "late", Category: domain.ConnectorCategoryApp, CreatedAt: created})
	late := domain.NewSyncState("s-late", "late")
	gone := domain.NewSyncState("s-gone", "gone")
	stores.SyncStateStore().Seed(late)
	stores.SyncStateStore().Seed(gone)

	// The snapshot predates the "late" connector
	backend.snap = driven.Snapshot{SyncStates: []*domain.SyncState{late, gone}}

	if err := env.service.RefreshConnectors(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("expected refresh to read one snapshot, got %d", backend.calls)
	}
	if _, ok := stores.SyncStateStore().Peek("s-late"); !ok {
		t.Error("sync state of an existing connector was swept")
	}
	if _, ok := stores.SyncStateStore().Peek("s-gone"); ok {
		t.Error("expected orphan of a missing connector swept")
	}
}
