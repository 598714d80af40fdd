package bench

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
)

type mockRepository struct {
	resources map[string]Resource
	hotlists  map[string]Hotlist
}

func newMockRepository(seed ...Resource) *mockRepository {
	m := &mockRepository{resources: make(map[string]Resource), hotlists: make(map[string]Hotlist)}
	for _, r := range seed {
		m.resources[r.ID] = r
	}
	return m
}

func (m *mockRepository) ListResources(ctx context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Resource) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *mockRepository) GetResource(ctx context.Context, id string) (Resource, error) {
	r, ok := m.resources[id]
	if !ok {
		return Resource{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *mockRepository) SaveResource(ctx context.Context, res Resource) error {
	m.resources[res.ID] = res
	return nil
}

func (m *mockRepository) DeleteResource(ctx context.Context, id string) error {
	if _, ok := m.resources[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.resources, id)
	return nil
}

func (m *mockRepository) ListHotlists(ctx context.Context) ([]Hotlist, error) {
	out := make([]Hotlist, 0, len(m.hotlists))
	for _, h := range m.hotlists {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b Hotlist) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *mockRepository) GetHotlist(ctx context.Context, id string) (Hotlist, error) {
	h, ok := m.hotlists[id]
	if !ok {
		return Hotlist{}, shared.ErrNotFound
	}
	return h, nil
}

func (m *mockRepository) SaveHotlist(ctx context.Context, h Hotlist) error {
	m.hotlists[h.ID] = h
	return nil
}

func (m *mockRepository) DeleteHotlist(ctx context.Context, id string) error {
	delete(m.hotlists, id)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingEvents) LogEvent(ctx context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) ofType(t audit.EventType) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Event
	for _, e := range r.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	repo    *mockRepository
	events  *recordingEvents
	service *Service
	auth    *rbac.Authorizer
}

func newFixture(seed ...Resource) *fixture {
	events := &recordingEvents{}
	repo := newMockRepository(seed...)
	svc := NewService(repo, events)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return &fixture{
		repo:    repo,
		events:  events,
		service: svc,
		auth: rbac.NewAuthorizer(rbac.AuthorizerParams{
			Matrix:    rbac.NewStaticStore(rbac.DefaultMatrix()),
			Narrowing: rbac.DefaultNarrowing(),
		}),
	}
}

func (f *fixture) guard(id string, role shared.Role, accounts ...string) *rbac.Guard {
	return f.auth.For(context.Background(), shared.NewActor(id, role, accounts...))
}

func seedResources() []Resource {
	return []Resource{
		{ID: "r1", Name: "Ada", Skill: "go", EmployeeID: "u1", Status: StatusAvailable},
		{ID: "r2", Name: "Grace", Skill: "cobol", EmployeeID: "u2", AccountID: "a1", Status: StatusAvailable},
		{ID: "r3", Name: "Linus", Skill: "c", EmployeeID: "u3", AccountID: "a9", Status: StatusPlaced},
	}
}

func ids(items []Resource) []string {
	out := make([]string, 0, len(items))
	for _, r := range items {
		out = append(out, r.ID)
	}
	return out
}

func TestListResourcesNarrowsBenchSales(t *testing.T) {
	f := newFixture(seedResources()...)

	got, err := f.service.ListResources(context.Background(), f.guard("u1", shared.RoleBenchSales, "a1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(got))

	got, err = f.service.ListResources(context.Background(), f.guard("u7", shared.RoleViewer))
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(got))
}

func TestListResourcesRequiresPermission(t *testing.T) {
	f := newFixture(seedResources()...)

	_, err := f.service.ListResources(context.Background(), f.guard("u1", shared.RoleRecruiter))
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.service.ListResources(context.Background(), f.auth.For(context.Background(), nil))
	assert.ErrorIs(t, err, shared.ErrNoActor)
}

func TestGetResourceOutsideScope(t *testing.T) {
	f := newFixture(seedResources()...)
	guard := f.guard("u1", shared.RoleBenchSales, "a1")

	_, err := f.service.GetResource(context.Background(), guard, "r3")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.service.GetResource(context.Background(), guard, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateResourceDefaults(t *testing.T) {
	f := newFixture()

	res, err := f.service.CreateResource(context.Background(), f.guard("u1", shared.RoleBenchSales), ResourceInput{
		Name:  "  Ada ",
		Skill: "go",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "Ada", res.Name)
	assert.Equal(t, "u1", res.EmployeeID)
	assert.Equal(t, StatusAvailable, res.Status)
	assert.Contains(t, f.repo.resources, res.ID)

	created := f.events.ofType(audit.EventResourceCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "bench_resource", created[0].ResourceType)
	assert.Equal(t, res.ID, created[0].ResourceID)
	assert.Equal(t, "add", created[0].Action)
}

func TestCreateResourceRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateResource(context.Background(), f.guard("u1", shared.RoleViewer), ResourceInput{Name: "Ada", Skill: "go"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.service.CreateResource(context.Background(), f.guard("u1", shared.RoleBenchSales), ResourceInput{Skill: "go"})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.service.CreateResource(context.Background(), f.guard("u1", shared.RoleBenchSales), ResourceInput{Name: "Ada", Skill: "go", Status: "retired"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, f.repo.resources)
}

func TestUpdateResourceChecksBeforeAndAfter(t *testing.T) {
	f := newFixture(seedResources()...)
	guard := f.guard("u1", shared.RoleBenchSales, "a1")

	res, err := f.service.UpdateResource(context.Background(), guard, "r2", ResourceInput{Name: "Grace H", Skill: "cobol", AccountID: "a1", Status: StatusInterviewing})
	require.NoError(t, err)
	assert.Equal(t, StatusInterviewing, res.Status)
	assert.Equal(t, "u2", res.EmployeeID)

	_, err = f.service.UpdateResource(context.Background(), guard, "r3", ResourceInput{Name: "Linus", Skill: "c", AccountID: "a9"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.service.UpdateResource(context.Background(), guard, "r1", ResourceInput{Name: "Ada", Skill: "go", EmployeeID: "u9", AccountID: "a9"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, "u1", f.repo.resources["r1"].EmployeeID)

	assert.Len(t, f.events.ofType(audit.EventResourceUpdated), 1)
}

func TestDeleteResource(t *testing.T) {
	f := newFixture(seedResources()...)
	guard := f.guard("u1", shared.RoleBenchSales)

	assert.ErrorIs(t, f.service.DeleteResource(context.Background(), guard, "r2"), shared.ErrForbidden)
	require.NoError(t, f.service.DeleteResource(context.Background(), guard, "r1"))
	assert.NotContains(t, f.repo.resources, "r1")

	deleted := f.events.ofType(audit.EventResourceDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, "r1", deleted[0].ResourceID)
}

func TestHotlistLifecycle(t *testing.T) {
	f := newFixture(seedResources()...)
	owner := f.guard("u1", shared.RoleBenchSales)

	h, err := f.service.CreateHotlist(context.Background(), owner, HotlistInput{Name: "Go devs", ResourceIDs: []string{"r1", "r2"}})
	require.NoError(t, err)
	assert.Equal(t, "u1", h.CreatedBy)

	_, err = f.service.CreateHotlist(context.Background(), owner, HotlistInput{Name: "Bad", ResourceIDs: []string{"nope"}})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	other := f.guard("u2", shared.RoleBenchSales)
	_, err = f.service.UpdateHotlist(context.Background(), other, h.ID, HotlistInput{Name: "Mine now"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := f.service.UpdateHotlist(context.Background(), owner, h.ID, HotlistInput{Name: "Go devs Q2", ResourceIDs: []string{"r1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, updated.ResourceIDs)

	viewer := f.guard("u7", shared.RoleViewer)
	lists, err := f.service.ListHotlists(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.ErrorIs(t, f.service.DeleteHotlist(context.Background(), viewer, h.ID), shared.ErrForbidden)

	require.NoError(t, f.service.DeleteHotlist(context.Background(), owner, h.ID))
	assert.Empty(t, f.repo.hotlists)
}
