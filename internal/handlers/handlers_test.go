package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/services"
	"github.com/guardpost/apiserver/internal/store"
	"github.com/guardpost/apiserver/internal/summarizer"
	"github.com/guardpost/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const cookieName = "guardpost_session"

type fixture struct {
	router   chi.Router
	api      *API
	sessions *memSessions
	users    *memUsers
}

func newFixture(t *testing.T, throttle auth.Throttle) fixture {
	t.Helper()
	sessions := newMemSessions()
	users := newMemUsers(
		testUser("alice", "correct-pw-1", types.RoleAdmin, types.UserStatusActive),
		testUser("olly", "officer-pw-1", types.RoleSecurityOfficer, types.UserStatusActive),
		testUser("ivan", "inactive-pw-1", types.RoleSupervisor, types.UserStatusInactive),
	)

	hasher := auth.NewHasher(bcrypt.MinCost, 2)
	manager := auth.NewManager(sessions, time.Hour, nil)
	cookie := auth.CookieConfig{Name: cookieName, TTL: time.Hour, SameSite: http.SameSiteLaxMode}
	guard := auth.NewGuard(manager, users, auth.DefaultPolicy(), cookie, nil)

	authHandler := NewAuthHandler(auth.NewVerifier(users, hasher), manager, guard, throttle, nil, nil)
	api := NewAPI(authHandler, Services{
		Clients:    services.NewClientService(newMemClients(), nil),
		Summarizer: summarizer.New(nil, time.Second, nil),
	}, 1<<20)

	router := chi.NewRouter()
	api.Mount(router, guard)
	return fixture{router: router, api: api, sessions: sessions, users: users}
}

func (f fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/auth/login", "", loginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := sessionCookie(rec)
	require.NotNil(t, token)
	return token.Value
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLoginStatusLogoutLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/auth/login", "", loginRequest{Username: "alice", Password: "correct-pw-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[loginResponse](t, rec)
	assert.True(t, login.Success)
	require.NotNil(t, login.User)
	assert.Equal(t, "alice", login.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)

	status := decode[statusResponse](t, f.do(http.MethodGet, "/auth/status", cookie.Value, nil))
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, "alice", status.User.Username)

	rec = f.do(http.MethodPost, "/auth/logout", cookie.Value, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Zero(t, f.sessions.count())

	status = decode[statusResponse](t, f.do(http.MethodGet, "/auth/status", cookie.Value, nil))
	assert.False(t, status.Authenticated)
	assert.Nil(t, status.User)
}

func TestLoginIsCaseInsensitiveOnUsername(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/auth/login", "", loginRequest{Username: "ALICE", Password: "correct-pw-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	f := newFixture(t, nil)

	cases := map[string]loginRequest{
		"wrong password": {Username: "alice", Password: "wrong-pw"},
		"unknown user":   {Username: "mallory", Password: "whatever-pw"},
		"inactive user":  {Username: "ivan", Password: "inactive-pw-1"},
		"empty":          {},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/auth/login", "", req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"error":"login failed"}`, rec.Body.String())
			assert.Nil(t, sessionCookie(rec))
		})
	}
	assert.Zero(t, f.sessions.count())
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	f := newFixture(t, nil)
	first := f.login(t, "alice", "correct-pw-1")

	rec := f.do(http.MethodPost, "/auth/login", first, loginRequest{Username: "alice", Password: "correct-pw-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.sessions.count())

	status := decode[statusResponse](t, f.do(http.MethodGet, "/auth/status", first, nil))
	assert.False(t, status.Authenticated)
}

func TestLoginThrottled(t *testing.T) {
	f := newFixture(t, auth.NewMemoryThrottle(2, time.Minute))

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodPost, "/auth/login", "", loginRequest{Username: "alice", Password: "wrong-pw"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := f.do(http.MethodPost, "/auth/login", "", loginRequest{Username: "Alice", Password: "correct-pw-1"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, decode[loginResponse](t, rec).Success)
	assert.Nil(t, sessionCookie(rec))

	rec = f.do(http.MethodPost, "/auth/login", "", loginRequest{Username: "olly", Password: "officer-pw-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusClearsUnknownToken(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/auth/status", "forged-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[statusResponse](t, rec).Authenticated)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestEveryGuardedRouteRejectsAnonymous(t *testing.T) {
	f := newFixture(t, nil)
	id := uuid.NewString()

	for _, route := range f.api.Routes() {
		path := strings.ReplaceAll(route.Pattern, "{id}", id)
		rec := f.do(route.Method, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.Method, route.Pattern)
	}
}

func TestCapabilitiesPerRole(t *testing.T) {
	f := newFixture(t, nil)
	officer := f.login(t, "olly", "officer-pw-1")
	admin := f.login(t, "alice", "correct-pw-1")

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/users", officer, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/clients", officer, types.Client{Name: "Acme", Status: types.ClientStatusActive}).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/clients", officer, nil).Code)

	rec := f.do(http.MethodPost, "/clients", admin, types.Client{Name: "Acme", Status: types.ClientStatusActive})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.Client](t, rec)
	assert.NotEmpty(t, created.ID)

	list := decode[ListResponse[types.Client]](t, f.do(http.MethodGet, "/clients?status=active", officer, nil))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, defaultLimit, list.Limit)
}

func TestMeListsCapabilities(t *testing.T) {
	f := newFixture(t, nil)
	token := f.login(t, "olly", "officer-pw-1")

	me := decode[meResponse](t, f.do(http.MethodGet, "/auth/me", token, nil))
	assert.Equal(t, "olly", me.User.Username)
	assert.Contains(t, me.Capabilities, string(auth.CapIncidentsWrite))
	assert.NotContains(t, me.Capabilities, string(auth.CapUsersManage))
}

func TestResourceErrors(t *testing.T) {
	f := newFixture(t, nil)
	admin := f.login(t, "alice", "correct-pw-1")

	rec := f.do(http.MethodPost, "/clients", admin, types.Client{Status: "archived"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "status")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/clients/not-a-uuid", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/clients/"+uuid.NewString(), admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/clients/"+uuid.NewString(), admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/clients?page=0", admin, nil).Code)
}

func TestIncidentSummaryFallsBack(t *testing.T) {
	f := newFixture(t, nil)
	token := f.login(t, "olly", "officer-pw-1")

	rec := f.do(http.MethodPost, "/ai/incident-summary", token, summarizer.IncidentInput{
		Type:        "trespass",
		Description: "Person seen climbing the fence",
		Location:    "North gate",
		Severity:    "high",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[summarizer.IncidentSummary](t, rec)
	assert.Equal(t, summarizer.SourceFallback, summary.Source)
	assert.Equal(t, "high", summary.Priority)
	assert.NotEmpty(t, summary.RiskAssessment)
	assert.NotEmpty(t, summary.RecommendedActions)

	rec = f.do(http.MethodPost, "/ai/incident-summary", token, summarizer.IncidentInput{Description: "no type"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{types.NewValidationError("name", "is required"), http.StatusUnprocessableEntity},
		{store.ErrNotFound, http.StatusNotFound},
		{services.ErrInvalidLink, http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{services.ErrLastAdmin, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err, "client")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.NotContains(t, rec.Body.String(), "connection reset")
	}
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query              string
		page, limit, offset int
		wantErr            bool
	}{
		{"", 1, 20, 0, false},
		{"page=3&limit=10", 3, 10, 20, false},
		{"per_page=5", 1, 5, 0, false},
		{"limit=500", 1, 100, 0, false},
		{"page=-1", 0, 0, 0, true},
		{"limit=abc", 0, 0, 0, true},
		{"page=9223372036854775807&limit=100", 0, 0, 0, true},
		{"page=21474838&limit=100", 0, 0, 0, true},
		{"page=21474837&limit=1", 21474837, 1, 21474836, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x?"+tc.query, nil)
		page, limit, offset, err := parsePagination(req)
		if tc.wantErr {
			assert.Error(t, err, tc.query)
			continue
		}
		require.NoError(t, err, tc.query)
		assert.Equal(t, []int{tc.page, tc.limit, tc.offset}, []int{page, limit, offset}, tc.query)
	}
}
