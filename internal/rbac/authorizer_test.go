package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/shared"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingEvents) LogEvent(ctx context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEvents) snapshot() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

type countingDecisions struct {
	allowed, denied int
}

func (c *countingDecisions) ObserveDecision(perm shared.Permission, allowed bool) {
	if allowed {
		c.allowed++
		return
	}
	c.denied++
}

func newTestAuthorizer(events EventLogger) *Authorizer {
	return NewAuthorizer(AuthorizerParams{
		Matrix:    NewStaticStore(DefaultMatrix()),
		Narrowing: DefaultNarrowing(),
		Events:    events,
	})
}

func TestDeniedSensitivePermissionEmitsOneEvent(t *testing.T) {
	events := &recordingEvents{}
	auth := newTestAuthorizer(events)
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleViewer))

	assert.False(t, guard.CanDeleteVendor(nil))

	got := events.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, audit.EventUnauthorizedAccess, got[0].EventType)
	assert.False(t, got[0].Success)
	assert.Equal(t, "vendor:delete", got[0].Details["permission"])
	assert.Equal(t, "u1", got[0].ActorID)
	assert.Equal(t, []shared.Role{shared.RoleViewer}, got[0].ActorRoles)
	assert.Equal(t, audit.LevelHigh, got[0].SecurityLevel)
}

func TestGrantedSensitivePermissionEmitsGrant(t *testing.T) {
	events := &recordingEvents{}
	auth := newTestAuthorizer(events)
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleVendorAdmin))

	assert.True(t, guard.CanManageUsers())

	got := events.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, audit.EventPermissionGranted, got[0].EventType)
	assert.True(t, got[0].Success)
	assert.Equal(t, audit.LevelCritical, got[0].SecurityLevel)
}

func TestRoutineChecksAreNotAudited(t *testing.T) {
	events := &recordingEvents{}
	auth := newTestAuthorizer(events)
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleViewer))

	assert.True(t, guard.CanViewBenchResources())
	assert.False(t, guard.CanCreateHotlist())
	assert.Empty(t, events.snapshot())
}

func TestDecisionObserverSeesEveryCheck(t *testing.T) {
	decisions := &countingDecisions{}
	auth := NewAuthorizer(AuthorizerParams{Matrix: NewStaticStore(DefaultMatrix()), Decisions: decisions})
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleRecruiter))

	guard.CanScreenCandidates()
	guard.CanCalculateMargin()
	guard.CanCalculateMargin()

	assert.Equal(t, 1, decisions.allowed)
	assert.Equal(t, 2, decisions.denied)
}

func TestGuardWithoutActorDeniesEverything(t *testing.T) {
	events := &recordingEvents{}
	auth := newTestAuthorizer(events)
	guard := auth.FromContext(context.Background())

	require.ErrorIs(t, guard.Err(), shared.ErrNoActor)
	assert.False(t, guard.CanViewBenchResources())
	assert.False(t, guard.CanDeleteVendor(nil))
	assert.False(t, guard.CanAccessMenuItem("dashboard"))
	assert.Empty(t, guard.Menu())
	assert.Empty(t, events.snapshot())

	var nilGuard *Guard
	require.ErrorIs(t, nilGuard.Err(), shared.ErrNoActor)
}

func TestGuardFromContext(t *testing.T) {
	auth := newTestAuthorizer(nil)
	ctx := shared.ContextWithActor(context.Background(), shared.NewActor("u1", shared.RoleAdmin))
	guard := auth.FromContext(ctx)
	require.NoError(t, guard.Err())
	assert.True(t, guard.CanManageSettings())
}

func TestHasPermissionRejectsUnknownPairs(t *testing.T) {
	auth := newTestAuthorizer(nil)
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleAdmin))

	assert.True(t, guard.HasPermission("vendor", "approve", nil))
	assert.True(t, guard.HasPermission(" Vendor ", "APPROVE", nil))
	assert.False(t, guard.HasPermission("payroll", "view", nil))
	assert.False(t, guard.HasPermission("vendor", "", nil))
}

func TestCapabilitiesNarrowWithContext(t *testing.T) {
	auth := newTestAuthorizer(nil)
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleBenchSales, "a1"))

	assert.True(t, guard.CanUpdateBenchResource(&PermissionContext{ResourceType: ResourceBench, EmployeeID: "u2", AccountID: "a1"}))
	assert.False(t, guard.CanUpdateBenchResource(&PermissionContext{ResourceType: ResourceBench, EmployeeID: "u2", AccountID: "a9"}))
	assert.True(t, guard.CanDeleteHotlist(&PermissionContext{ResourceType: ResourceHotlist, CreatedBy: "u1"}))
	assert.False(t, guard.CanViewAnalytics(nil))
}

func TestMenuSettingsEntry(t *testing.T) {
	auth := newTestAuthorizer(nil)
	ctx := context.Background()

	assert.False(t, auth.For(ctx, shared.NewActor("u1", shared.RoleAccountManager)).CanAccessMenuItem("settings"))
	assert.True(t, auth.For(ctx, shared.NewActor("u1", shared.RoleVendorAdmin)).CanAccessMenuItem("settings"))
	assert.False(t, auth.For(ctx, shared.NewActor("u1", shared.RoleAdmin)).CanAccessMenuItem("payroll"))
}

func TestMenuFollowsTableOrder(t *testing.T) {
	auth := newTestAuthorizer(nil)
	menu := auth.For(context.Background(), shared.NewActor("u1", shared.RoleViewer)).Menu()

	ids := make([]string, 0, len(menu))
	for _, item := range menu {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"dashboard", "bench", "hotlists", "vendors", "pocs"}, ids)

	admin := auth.For(context.Background(), shared.NewActor("u1", shared.RoleAdmin)).Menu()
	assert.Len(t, admin, len(MenuItems()))
}

func TestDenialMessages(t *testing.T) {
	auth := newTestAuthorizer(nil)
	ctx := context.Background()

	assert.Equal(t, "You need to sign in to continue.", auth.FromContext(ctx).Denial(shared.PermDashboardView, nil))

	viewer := auth.For(ctx, shared.NewActor("u1", shared.RoleViewer))
	assert.Equal(t, "The Viewer role does not include delete access to vendor.", viewer.Denial(shared.PermVendorDelete, nil))
	assert.Empty(t, viewer.Denial(shared.PermDashboardView, nil))

	sales := auth.For(ctx, shared.NewActor("u1", shared.RoleBenchSales, "a1"))
	msg := sales.Denial(shared.PermBenchEdit, &PermissionContext{ResourceType: ResourceBench, EmployeeID: "u2", AccountID: "a9"})
	assert.Contains(t, msg, "records you own")
}

func TestGuardFilter(t *testing.T) {
	auth := newTestAuthorizer(nil)
	rows := []benchRow{{id: "b1", employee: "u1"}, {id: "b2", employee: "u2", account: "a9"}}

	sales := auth.For(context.Background(), shared.NewActor("u1", shared.RoleBenchSales))
	assert.Len(t, Filter(sales, shared.PermBenchView, rows), 1)

	anonymous := auth.FromContext(context.Background())
	assert.Empty(t, Filter(anonymous, shared.PermBenchView, rows))
}

type erroringSink struct{}

func (erroringSink) Record(ctx context.Context, e audit.Event) error {
	return errors.New("audit store unavailable")
}

type stalledSink struct {
	release chan struct{}
}

func (s stalledSink) Record(ctx context.Context, e audit.Event) error {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return ctx.Err()
}

func decisionTable(guard *Guard) []bool {
	out := []bool{guard.CanDeleteVendor(nil), guard.CanManageUsers(), guard.CanViewAudit()}
	for _, role := range shared.AllRoles() {
		out = append(out, guard.CanGrantRole(role))
	}
	return out
}

func TestDecisionsIndependentOfAuditDelivery(t *testing.T) {
	actors := []*shared.Actor{
		shared.NewActor("u1", shared.RoleViewer),
		shared.NewActor("u2", shared.RoleVendorAdmin),
		shared.NewActor("u3", shared.RoleAdmin),
	}

	failing := audit.NewEmitter(erroringSink{}, audit.EmitterConfig{QueueSize: 1})
	stalled := stalledSink{release: make(chan struct{})}
	saturated := audit.NewEmitter(stalled, audit.EmitterConfig{QueueSize: 1, WriteTimeout: time.Minute})
	t.Cleanup(func() {
		close(stalled.release)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = failing.Close(ctx)
		_ = saturated.Close(ctx)
	})

	baseline := newTestAuthorizer(nil)
	for _, events := range []EventLogger{failing, saturated} {
		auth := newTestAuthorizer(events)
		for _, actor := range actors {
			want := decisionTable(baseline.For(context.Background(), actor))
			// Repeat so the queue is full well before the last round.
			for range 5 {
				assert.Equal(t, want, decisionTable(auth.For(context.Background(), actor)), actor.ID)
			}
		}
	}
}

func TestMenuChecksAreNotAudited(t *testing.T) {
	events := &recordingEvents{}
	auth := newTestAuthorizer(events)
	guard := auth.For(context.Background(), shared.NewActor("u1", shared.RoleViewer))

	assert.False(t, guard.CanAccessMenuItem("settings"))
	assert.False(t, guard.CanAccessMenuItem("users"))
	assert.NotEmpty(t, guard.Menu())
	assert.Empty(t, events.snapshot())

	// The action behind the entry is still audited.
	assert.False(t, guard.CanManageSettings())
	got := events.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "admin:settings", got[0].Details["permission"])
}
