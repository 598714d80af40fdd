package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffhub/staffhub/internal/auth"
	"github.com/staffhub/staffhub/internal/shared"
	"github.com/staffhub/staffhub/internal/users"
)

type stubUsers struct {
	users map[string]*users.User
}

func (s *stubUsers) FindByID(ctx context.Context, id string) (*users.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func newUsers(t *testing.T) *stubUsers {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &stubUsers{users: map[string]*users.User{
		"u1": {ID: "u1", Email: "user@test.local", PasswordHash: string(hashed), Role: shared.RoleBenchSales, AccountIDs: []string{"a1"}, IsActive: true},
		"u2": {ID: "u2", Email: "gone@test.local", PasswordHash: string(hashed), Role: shared.RoleViewer, IsActive: false},
	}}
}

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	return shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
}

// serveWithSession loads the session for req, runs h and commits the session.
func serveWithSession(t *testing.T, sm *shared.SessionManager, h http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	h(res, req)
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func loginRequest(email, password string) *http.Request {
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLoginEstablishesSession(t *testing.T) {
	lookup := newUsers(t)
	sm := newSessionManager(t)
	tokens := auth.NewJWTResolver(auth.JWTConfig{Secret: "secret", Issuer: "staffhub"})
	handler := auth.NewHandler(nil, auth.NewService(lookup), sm, tokens)

	res, sess := serveWithSession(t, sm, handler.HandleLoginForTest, loginRequest("user@test.local", "correctpass"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Actor shared.Actor `json:"actor"`
		Token string       `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Actor.ID != "u1" || body.Actor.Role != shared.RoleBenchSales {
		t.Fatalf("unexpected actor: %+v", body.Actor)
	}
	if _, err := tokens.Parse(body.Token); err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	// The cookie now resolves to the same actor.
	next := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	actor, err := auth.NewSessionResolver(lookup).Resolve(shared.ContextWithSession(next.Context(), loaded), next)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if actor.ID != "u1" || !actor.InAccount("a1") {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	lookup := newUsers(t)
	sm := newSessionManager(t)
	handler := auth.NewHandler(nil, auth.NewService(lookup), sm, nil)

	for _, tc := range []struct {
		email, password string
		want            int
	}{
		{"user@test.local", "wrongpass", http.StatusUnauthorized},
		{"nobody@test.local", "correctpass", http.StatusUnauthorized},
		{"gone@test.local", "correctpass", http.StatusUnauthorized},
		{"not-an-email", "correctpass", http.StatusBadRequest},
	} {
		res, sess := serveWithSession(t, sm, handler.HandleLoginForTest, loginRequest(tc.email, tc.password))
		if res.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.email, tc.want, res.Code)
		}
		if sess.User() != "" {
			t.Fatalf("%s: session should stay anonymous", tc.email)
		}
	}
}

func TestSessionResolverAnonymous(t *testing.T) {
	resolver := auth.NewSessionResolver(newUsers(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, err := resolver.Resolve(req.Context(), req); err != shared.ErrNoActor {
		t.Fatalf("expected ErrNoActor without session, got %v", err)
	}

	sess := &shared.Session{}
	sess.SetUser("u2")
	ctx := shared.ContextWithSession(req.Context(), sess)
	if _, err := resolver.Resolve(ctx, req); err != shared.ErrNoActor {
		t.Fatalf("expected ErrNoActor for inactive user, got %v", err)
	}

	sess.SetUser("ghost")
	if _, err := resolver.Resolve(ctx, req); err != shared.ErrNoActor {
		t.Fatalf("expected ErrNoActor for missing user, got %v", err)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	sm := newSessionManager(t)
	handler := auth.NewHandler(nil, auth.NewService(newUsers(t)), sm, nil)

	_, sess := serveWithSession(t, sm, handler.HandleLoginForTest, loginRequest("user@test.local", "correctpass"))

	logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logout.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	res, _ := serveWithSession(t, sm, handler.HandleLogoutForTest, logout)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), again)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User() != "" {
		t.Fatalf("expected anonymous session after logout")
	}
}

func TestLoginRenewsSessionID(t *testing.T) {
	lookup := newUsers(t)
	sm := newSessionManager(t)
	handler := auth.NewHandler(nil, auth.NewService(lookup), sm, nil)

	// An anonymous session that already exists server side, as if its cookie
	// had been handed to the victim before login.
	planted, _ := serveWithSession(t, sm, func(w http.ResponseWriter, r *http.Request) {
		shared.SessionFromContext(r.Context()).Set("lang", "en")
	}, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := planted.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected planted cookie, got %d", len(cookies))
	}
	oldID := cookies[0].Value

	req := loginRequest("user@test.local", "correctpass")
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldID})
	res, sess := serveWithSession(t, sm, handler.HandleLoginForTest, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.ID == oldID {
		t.Fatalf("session id was not rotated on login")
	}
	issued := res.Result().Cookies()
	if len(issued) != 1 || issued[0].Value != sess.ID {
		t.Fatalf("expected cookie for rotated id %q, got %+v", sess.ID, issued)
	}

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: oldID})
	loaded, err := sm.Load(context.Background(), stale)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User() != "" || loaded.ID == oldID {
		t.Fatalf("old session id still resolves: user=%q id=%q", loaded.User(), loaded.ID)
	}

	fresh := httptest.NewRequest(http.MethodGet, "/", nil)
	fresh.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err = sm.Load(context.Background(), fresh)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User() != "u1" {
		t.Fatalf("expected rotated session to carry u1, got %q", loaded.User())
	}
}
