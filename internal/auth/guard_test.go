package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guardpost/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type guardFixture struct {
	guard    *Guard
	manager  *Manager
	sessions *memSessions
	users    *memUsers
}

func newGuardFixture(t *testing.T) guardFixture {
	t.Helper()
	sessions := newMemSessions()
	users := newMemUsers(
		testUser("u-alice", "alice", "pw-alice-123", types.RoleAdmin),
		testUser("u-olly", "olly", "pw-olly-123", types.RoleSecurityOfficer),
	)
	manager := NewManager(sessions, time.Hour, nil)
	cookie := CookieConfig{Name: "guardpost_session", TTL: time.Hour, SameSite: http.SameSiteLaxMode}
	return guardFixture{
		guard:    NewGuard(manager, users, DefaultPolicy(), cookie, nil),
		manager:  manager,
		sessions: sessions,
		users:    users,
	}
}

func (f guardFixture) login(t *testing.T, userID string) string {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := f.manager.Create(context.Background(), user.Identity(), Metadata{})
	require.NoError(t, err)
	return token
}

func (f guardFixture) serve(token string, capability Capability) (*httptest.ResponseRecorder, *types.UserIdentity) {
	var seen *types.UserIdentity
	handler := f.guard.Authenticate(f.guard.Require(capability)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if ok {
			seen = &identity
		}
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "guardpost_session", Value: token})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestGuardRejectsMissingCookie(t *testing.T) {
	f := newGuardFixture(t)

	rec, seen := f.serve("", CapIncidentsRead)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
	assert.Empty(t, rec.Result().Cookies())
}

func TestGuardRejectsMalformedCookie(t *testing.T) {
	f := newGuardFixture(t)

	rec, _ := f.serve("not-a-token", CapIncidentsRead)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestGuardAttachesIdentity(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "u-olly")

	rec, seen := f.serve(token, CapIncidentsRead)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "olly", seen.Username)
	assert.Equal(t, types.RoleSecurityOfficer, seen.Role)
}

func TestGuardRejectsDestroyedSession(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "u-alice")
	require.NoError(t, f.manager.Destroy(context.Background(), token))

	rec, _ := f.serve(token, CapAuthenticated)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardRejectsDeactivatedUserAndDestroysSession(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "u-olly")
	f.users.setStatus("u-olly", types.UserStatusInactive)

	rec, seen := f.serve(token, CapAuthenticated)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
	assert.Equal(t, 0, f.sessions.count())
}

func TestGuardRejectsDeletedUser(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "u-olly")
	f.users.remove("u-olly")

	rec, _ := f.serve(token, CapAuthenticated)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, f.sessions.count())
}

func TestGuardForbidsMissingCapability(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "u-olly")

	rec, _ := f.serve(token, CapFinancialsRead)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	assert.Equal(t, 1, f.sessions.count())
}

func TestGuardAdminHoldsEveryCapability(t *testing.T) {
	f := newGuardFixture(t)
	token := f.login(t, "u-alice")

	for _, capability := range []Capability{CapUsersManage, CapFinancialsWrite, CapReferencesWrite} {
		rec, _ := f.serve(token, capability)
		assert.Equal(t, http.StatusNoContent, rec.Code, capability)
	}
}

func TestRequireWithoutAuthenticateIsUnauthorized(t *testing.T) {
	f := newGuardFixture(t)
	handler := f.guard.Require(CapAuthenticated)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCookieAttributes(t *testing.T) {
	cookie := CookieConfig{Name: "sid", TTL: 2 * time.Hour, Secure: true, SameSite: ParseSameSite("strict")}
	rec := httptest.NewRecorder()

	cookie.Set(rec, "tok")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, http.SameSiteLaxMode, ParseSameSite("bogus"))
}
