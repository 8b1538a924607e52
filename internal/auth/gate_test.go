package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

func init() { gin.SetMode(gin.TestMode) }

type stubUsers struct {
	users map[string]*user.User
	err   error
	calls int
}

func (s *stubUsers) GetByUID(_ context.Context, uid string) (*user.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[uid]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func TestAuthorizer(t *testing.T) {
	store := &stubUsers{users: map[string]*user.User{
		"admin-1": {UID: "admin-1", Role: user.RoleAdmin},
		"plain-1": {UID: "plain-1", Role: user.RoleNone},
		"weird-1": {UID: "weird-1", Role: user.Role(42)},
	}}
	a := NewAuthorizer(store)
	ctx := context.Background()

	assert.NoError(t, a.Authorize(ctx, "admin-1"))
	assert.ErrorIs(t, a.Authorize(ctx, "plain-1"), apperr.ErrForbidden)
	assert.ErrorIs(t, a.Authorize(ctx, "weird-1"), apperr.ErrForbidden)
	assert.ErrorIs(t, a.Authorize(ctx, "ghost"), apperr.ErrForbidden)

	store.err = errors.New("socket closed")
	err := a.Authorize(ctx, "admin-1")
	require.Error(t, err)
	assert.Equal(t, apperr.ErrUpstream, apperr.Kind(err))
}

type harness struct {
	router  *gin.Engine
	tokens  *Tokens
	users   *stubUsers
	reached bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tokens: newTestTokens(t),
		users: &stubUsers{users: map[string]*user.User{
			"admin-1": {UID: "admin-1", Role: user.RoleAdmin},
			"plain-1": {UID: "plain-1", Role: user.RoleNone},
		}},
	}
	gate := NewGate(h.tokens, NewAuthorizer(h.users))
	handler := func(c *gin.Context) {
		h.reached = true
		c.JSON(200, gin.H{"uid": UID(c)})
	}

	h.router = gin.New()
	h.router.GET("/me", gate.Authenticated(), handler)
	h.router.GET("/admin", gate.Admin(), handler)
	return h
}

func (h *harness) do(t *testing.T, path, authz, uid string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	if uid != "" {
		req.Header.Set(HeaderUID, uid)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestGate_Authenticated(t *testing.T) {
	h := newHarness(t)
	token, err := h.tokens.Issue("plain-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		authz  string
		uid    string
		status int
	}{
		{"no header", "", "plain-1", 401},
		{"wrong scheme", "Basic " + token, "plain-1", 401},
		{"empty bearer", "Bearer   ", "plain-1", 401},
		{"garbage token", "Bearer nope", "plain-1", 403},
		{"mismatched uid", "Bearer " + token, "admin-1", 403},
		{"missing uid header", "Bearer " + token, "", 403},
		{"valid", "Bearer " + token, "plain-1", 200},
		{"lowercase scheme", "bearer " + token, "plain-1", 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.reached = false
			status, body := h.do(t, "/me", tt.authz, tt.uid)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.status == 200, h.reached)
			if tt.status == 200 {
				assert.Equal(t, "plain-1", body["uid"])
			} else {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

func TestGate_Admin(t *testing.T) {
	h := newHarness(t)
	adminToken, err := h.tokens.Issue("admin-1")
	require.NoError(t, err)
	plainToken, err := h.tokens.Issue("plain-1")
	require.NoError(t, err)
	ghostToken, err := h.tokens.Issue("ghost")
	require.NoError(t, err)

	status, body := h.do(t, "/admin", "", "admin-1")
	assert.Equal(t, 401, status)
	assert.Equal(t, "unauthorized", body["message"])
	assert.Equal(t, 0, h.users.calls, "role lookup happens only after verification")

	status, body = h.do(t, "/admin", "Bearer "+plainToken, "plain-1")
	assert.Equal(t, 403, status)
	assert.Equal(t, "forbidden access", body["message"])
	assert.False(t, h.reached)

	status, _ = h.do(t, "/admin", "Bearer "+ghostToken, "ghost")
	assert.Equal(t, 403, status)

	status, _ = h.do(t, "/admin", "Bearer "+adminToken, "admin-1")
	assert.Equal(t, 200, status)
	assert.True(t, h.reached)

	h.reached = false
	h.users.err = errors.New("timeout")
	status, body = h.do(t, "/admin", "Bearer "+adminToken, "admin-1")
	assert.Equal(t, 500, status)
	assert.Equal(t, "Internal server error.", body["message"])
	assert.False(t, h.reached)
}
