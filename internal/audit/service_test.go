package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/staffhub/internal/shared"
)

type stubGate struct {
	err            error
	view, exporter bool
}

func (g stubGate) Err() error           { return g.err }
func (g stubGate) CanViewAudit() bool   { return g.view }
func (g stubGate) CanExportAudit() bool { return g.exporter }

func seededStore(t *testing.T, n int) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		err := store.Record(context.Background(), Event{
			ID:        fmt.Sprintf("e%02d", i),
			EventType: EventPermissionGranted,
			ActorID:   fmt.Sprintf("u%d", i%3),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	return store
}

func TestServiceEventsPaging(t *testing.T) {
	svc := NewService(seededStore(t, 25))
	gate := stubGate{view: true}

	first, err := svc.Events(context.Background(), gate, Filters{})
	require.NoError(t, err)
	assert.Len(t, first.Events, defaultPageSize)
	assert.True(t, first.Paging.HasNext)
	assert.Equal(t, 2, first.Paging.NextPage)
	assert.Equal(t, "e24", first.Events[0].ID)

	second, err := svc.Events(context.Background(), gate, Filters{Page: 2})
	require.NoError(t, err)
	assert.Len(t, second.Events, 5)
	assert.False(t, second.Paging.HasNext)
	assert.Equal(t, 1, second.Paging.PrevPage)
}

func TestServiceEventsFilters(t *testing.T) {
	svc := NewService(seededStore(t, 9))
	result, err := svc.Events(context.Background(), stubGate{view: true}, Filters{UserID: "u1", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, result.Events, 3)
	assert.Equal(t, maxPageSize, result.Paging.PageSize)
	for _, e := range result.Events {
		assert.Equal(t, "u1", e.ActorID)
	}
}

func TestServiceEventsAuthorization(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Events(context.Background(), stubGate{err: shared.ErrNoActor}, Filters{})
	require.ErrorIs(t, err, shared.ErrNoActor)

	_, err = svc.Events(context.Background(), nil, Filters{})
	require.ErrorIs(t, err, shared.ErrNoActor)

	_, err = svc.Export(context.Background(), nil, Filters{})
	require.ErrorIs(t, err, shared.ErrNoActor)

	_, err = svc.Events(context.Background(), stubGate{}, Filters{})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Export(context.Background(), stubGate{view: true}, Filters{})
	require.ErrorIs(t, err, shared.ErrForbidden)

	result, err := svc.Events(context.Background(), stubGate{view: true}, Filters{})
	require.NoError(t, err)
	assert.NotNil(t, result.Events)
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	svc := NewService(seededStore(t, 60))
	rows, err := svc.Export(context.Background(), stubGate{exporter: true}, Filters{})
	require.NoError(t, err)
	assert.Len(t, rows, 60)
}

func TestExportCSV(t *testing.T) {
	events := []Event{{
		ID:            "e1",
		EventType:     EventUnauthorizedAccess,
		ActorID:       "u1",
		ActorRoles:    []shared.Role{shared.RoleViewer},
		Timestamp:     time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
		Action:        "delete",
		ResourceType:  "vendor",
		Details:       map[string]any{"permission": "vendor:delete"},
		SecurityLevel: LevelHigh,
	}}
	out, err := ExportCSV(events)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Contains(t, lines[1], "2024-03-01T08:30:00Z,unauthorized_access,u1,viewer,delete,vendor,,false,high")
	assert.Contains(t, lines[1], `"{""permission"":""vendor:delete""}"`)
}

func TestFiltersMatches(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Event{EventType: EventRoleChanged, ActorID: "root", ResourceType: "role", ResourceID: "viewer", Timestamp: at}

	assert.True(t, Filters{}.Matches(e))
	assert.True(t, Filters{EventType: EventRoleChanged, ResourceID: "viewer"}.Matches(e))
	assert.False(t, Filters{UserID: "u1"}.Matches(e))
	assert.False(t, Filters{DateFrom: at.Add(time.Minute)}.Matches(e))
	assert.False(t, Filters{DateTo: at.Add(-time.Minute)}.Matches(e))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, Event{
		ID:         "e1",
		EventType:  EventUnauthorizedAccess,
		ActorRoles: []shared.Role{shared.RoleViewer},
		Details:    map[string]any{"permission": "vendor:delete"},
	}))

	rows, err := store.Query(ctx, Filters{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rows[0].Details["permission"] = "tampered"
	rows[0].ActorRoles[0] = shared.RoleAdmin

	snapshot := store.Events()
	snapshot[0].Details["extra"] = true

	again, err := store.Query(ctx, Filters{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"permission": "vendor:delete"}, again[0].Details)
	assert.Equal(t, []shared.Role{shared.RoleViewer}, again[0].ActorRoles)
}
