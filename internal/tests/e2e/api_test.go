//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t    *testing.T
	http *http.Client
}

func newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) login(username, password string) int {
	c.t.Helper()
	return c.do(http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password}, nil)
}

type status struct {
	Authenticated bool `json:"authenticated"`
	User          *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func TestAuthLifecycle(t *testing.T) {
	c := newClient(t)

	require.Equal(t, http.StatusOK, c.login(adminUsername, adminPassword))

	var st status
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/auth/status", nil, &st))
	assert.True(t, st.Authenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, adminUsername, st.User.Username)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/logout", nil, nil))

	st = status{}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/auth/status", nil, &st))
	assert.False(t, st.Authenticated)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/incidents", nil, nil))
}

func TestWrongPasswordSetsNoCookie(t *testing.T) {
	c := newClient(t)
	assert.Equal(t, http.StatusUnauthorized, c.login(adminUsername, "wrong-password"))

	var st status
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/auth/status", nil, &st))
	assert.False(t, st.Authenticated)
}

func TestIncidentLifecycle(t *testing.T) {
	c := newClient(t)
	require.Equal(t, http.StatusOK, c.login(adminUsername, adminPassword))

	var property struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/properties", map[string]any{
		"name":           "Harbor Warehouse",
		"address":        "1 Dock Road",
		"security_level": "high",
		"coverage_type":  "patrol",
	}, &property))

	incident := map[string]any{
		"property_id": property.ID,
		"type":        "trespass",
		"title":       "Fence breach",
		"description": "Cut fence on the north side",
		"severity":    "high",
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	}
	var created struct {
		ID         string  `json:"id"`
		Status     string  `json:"status"`
		ReportedBy *string `json:"reported_by"`
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/incidents", incident, &created))
	assert.Equal(t, "open", created.Status)
	require.NotNil(t, created.ReportedBy)

	incident["property_id"] = uuid.NewString()
	assert.Equal(t, http.StatusUnprocessableEntity, c.do(http.MethodPost, "/incidents", incident, nil))

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/incidents/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/incidents/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/incidents/"+created.ID, nil, nil))

	var activities struct {
		Total int `json:"total"`
	}
	path := fmt.Sprintf("/activities?entity_type=incident&entity_id=%s", created.ID)
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, path, nil, &activities))
	assert.Equal(t, 2, activities.Total)
}

func TestDeactivationEndsSessions(t *testing.T) {
	admin := newClient(t)
	require.Equal(t, http.StatusOK, admin.login(adminUsername, adminPassword))

	username := fmt.Sprintf("officer%d", time.Now().UnixNano())
	var officer struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/users", map[string]any{
		"username":   username,
		"email":      username + "@example.com",
		"first_name": "Olly",
		"last_name":  "Officer",
		"role":       "security_officer",
		"password":   "officer-pw-e2e",
	}, &officer))

	c := newClient(t)
	require.Equal(t, http.StatusOK, c.login(username, "officer-pw-e2e"))
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/auth/me", nil, nil))
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodGet, "/users", nil, nil))

	require.Equal(t, http.StatusNoContent, admin.do(http.MethodDelete, "/users/"+officer.ID, nil, nil))

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/auth/me", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, c.login(username, "officer-pw-e2e"))
}
