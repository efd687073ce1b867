package apiclient

import (
	"context"
	"net/http"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userContextReporter records SetUserContext calls.
type userContextReporter struct {
	users []map[string]any
}

func (r *userContextReporter) Report(error, ReportContext) {}

func (r *userContextReporter) SetUserContext(user map[string]any) {
	r.users = append(r.users, user)
}

func TestMapState(t *testing.T) {
	s := NewMapState()

	_, ok := s.Get("k")
	assert.False(t, ok)

	s.Set("k", 1)
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	s.Set("k", nil)
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestSessionLogin(t *testing.T) {
	tokens := &memTokens{}
	reporter := &userContextReporter{}
	state := NewMapState()
	session := NewSession(New("https://api.example.com", tokens), state, reporter)

	resp := Payload{
		"token": "tok-1",
		"user":  map[string]any{"username": "ada", "id": float64(7), "email": "ada@example.com"},
	}
	session.Login(resp)

	assert.Equal(t, "tok-1", tokens.Token())
	user, ok := session.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, resp, user)
	require.Len(t, reporter.users, 1)
	assert.Equal(t, map[string]any{"username": "ada", "id": float64(7)}, reporter.users[0])
}

func TestSessionLogout(t *testing.T) {
	b := newBackend(t, respondJSON(http.StatusOK, map[string]any{"success": true}))
	tokens := &memTokens{token: "tok-1"}
	reporter := &userContextReporter{}
	state := NewMapState()
	state.Set(StateKeyUser, Payload{"token": "tok-1"})
	session := NewSession(New(b.server.URL, tokens), state, reporter)

	session.Logout(context.Background())

	require.Equal(t, 1, b.count())
	call := b.last()
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/auth", call.Path)
	assert.Equal(t, "DELETE", call.PostForm.Get("_method"))
	assert.Equal(t, "tok-1", call.PostForm.Get("token"))
	assert.Empty(t, call.RawQuery, "explicit token must not be injected again")

	assert.Empty(t, tokens.Token())
	_, ok := session.CurrentUser()
	assert.False(t, ok)
	require.Len(t, reporter.users, 1)
	assert.Nil(t, reporter.users[0])
}

func TestSessionLogoutClearsLocallyWhenServerFails(t *testing.T) {
	b := newBackend(t, respondJSON(http.StatusInternalServerError, map[string]any{"error": "boom"}))
	logger, hook := logtest.NewNullLogger()
	tokens := &memTokens{token: "tok-1"}
	state := NewMapState()
	state.Set(StateKeyUser, Payload{"token": "tok-1"})
	session := NewSession(New(b.server.URL, tokens, WithLogger(logger)), state, nil)

	session.Logout(context.Background())

	assert.Empty(t, tokens.Token())
	_, ok := session.CurrentUser()
	assert.False(t, ok)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "failed to end server session" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestSessionRestore(t *testing.T) {
	b := newBackend(t, respondJSON(http.StatusOK, map[string]any{
		"user":              map[string]any{"username": "ada", "id": 7},
		"token":             "tok-2",
		"userGlobalOptions": map[string]any{"theme": "dark"},
		"rightColBox":       "news",
		"ignored":           true,
	}))
	tokens := &memTokens{token: "tok-1"}
	state := NewMapState()
	session := NewSession(New(b.server.URL, tokens), state, nil)

	resp, err := session.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)

	call := b.last()
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/auth", call.Path)
	assert.Equal(t, "tok-1", call.Query.Get("token"))
	assert.Equal(t, "1", call.Query.Get("extraAuthInfo"))

	assert.Equal(t, "tok-2", tokens.Token())
	user, ok := session.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "tok-2", user["token"])
	assert.Equal(t, "news", user["rightColBox"])
	assert.NotContains(t, user, "ignored")
}

func TestSessionRestoreNothingToDo(t *testing.T) {
	b := newBackend(t, respondJSON(http.StatusOK, map[string]any{"user": map[string]any{"id": 1}, "token": "x"}))

	t.Run("no stored token", func(t *testing.T) {
		session := NewSession(New(b.server.URL, &memTokens{}), NewMapState(), nil)
		resp, err := session.Restore(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, resp)
	})

	t.Run("already signed in", func(t *testing.T) {
		state := NewMapState()
		state.Set(StateKeyUser, Payload{"token": "t"})
		session := NewSession(New(b.server.URL, &memTokens{token: "t"}), state, nil)
		resp, err := session.Restore(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, resp)
	})

	assert.Equal(t, 0, b.count())
}

func TestSessionRestoreUnknownToken(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"no user in response", respondJSON(http.StatusOK, map[string]any{"user": nil})},
		{"rejected token", respondJSON(http.StatusUnauthorized, map[string]any{"error": "Invalid token."})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, tt.handler)
			tokens := &memTokens{token: "stale"}
			state := NewMapState()
			session := NewSession(New(b.server.URL, tokens), state, nil)

			resp, err := session.Restore(context.Background())
			assert.NoError(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, "stale", tokens.Token())
			_, ok := session.CurrentUser()
			assert.False(t, ok)
		})
	}
}

func TestSessionUsesClientReporterByDefault(t *testing.T) {
	reporter := &userContextReporter{}
	client := New("https://api.example.com", &memTokens{}, WithReporter(reporter))
	session := NewSession(client, NewMapState(), nil)

	session.Login(Payload{"token": "t", "user": map[string]any{"username": "ada", "id": float64(1)}})

	require.Len(t, reporter.users, 1)
	assert.Equal(t, "ada", reporter.users[0]["username"])
}
