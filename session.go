package apiclient

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// StateKeyUser is the state key holding the signed-in user's auth payload.
const StateKeyUser = "auth.user"

// StateStore is the read/write key-value surface of the application store.
type StateStore interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MapState is a StateStore backed by a map.
type MapState struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewMapState() *MapState {
	return &MapState{data: make(map[string]any)}
}

func (s *MapState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MapState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.data, key)
		return
	}
	s.data[key] = value
}

// Session ties the client, its token store and the application state
// together for sign-in, sign-out and restoring a session from a stored token.
type Session struct {
	client   *Client
	tokens   TokenStore
	state    StateStore
	reporter Reporter
	logger   logrus.FieldLogger
}

// NewSession builds a Session over the client's token store. A nil
// reporter falls back to the client's own reporter.
func NewSession(client *Client, state StateStore, reporter Reporter) *Session {
	if reporter == nil {
		reporter = client.errors.reporter
	}
	return &Session{
		client:   client,
		tokens:   client.tokens,
		state:    state,
		reporter: reporter,
		logger:   client.logger,
	}
}

// CurrentUser returns the signed-in user's auth payload, if any.
func (s *Session) CurrentUser() (Payload, bool) {
	v, ok := s.state.Get(StateKeyUser)
	if !ok || v == nil {
		return nil, false
	}
	p, ok := v.(Payload)
	return p, ok
}

// Login records a successful login response: the payload goes into state,
// its token into the token store, and the user into the monitoring context.
func (s *Session) Login(resp Payload) {
	s.state.Set(StateKeyUser, resp)
	s.tokens.SetToken(resp.String("token"))

	if user := resp.Object("user"); user != nil {
		s.setUserContext(map[string]any{
			"username": user["username"],
			"id":       user["id"],
		})
	}
}

// Logout ends the server session and clears all local credential state.
// A failure to reach the server is logged, not returned.
func (s *Session) Logout(ctx context.Context) {
	existing := s.tokens.Token()

	if _, err := s.client.Delete(ctx, "auth", Params{"token": existing}); err != nil {
		s.logger.WithError(err).Warn("failed to end server session")
	}

	s.state.Set(StateKeyUser, nil)
	s.tokens.SetToken("")
	s.setUserContext(nil)
}

// Restore looks up the user behind a stored token when no user is signed
// in yet. It returns (nil, nil) when there is nothing to restore or the API
// does not recognise the token.
func (s *Session) Restore(ctx context.Context) (Payload, error) {
	token := s.tokens.Token()
	if token == "" {
		return nil, nil
	}
	if _, ok := s.CurrentUser(); ok {
		return nil, nil
	}

	resp, err := s.client.Get(ctx, "auth", Params{"token": token, "extraAuthInfo": 1}, false)
	if err != nil {
		s.logger.WithError(err).Info("stored token not accepted")
		return nil, nil
	}
	if resp.Object("user") == nil {
		return nil, nil
	}

	s.client.SetAuthToken(resp.String("token"))
	s.state.Set(StateKeyUser, Payload{
		"user":              resp["user"],
		"token":             resp["token"],
		"userGlobalOptions": resp["userGlobalOptions"],
		"rightColBox":       resp["rightColBox"],
	})
	return resp, nil
}

func (s *Session) setUserContext(user map[string]any) {
	if setter, ok := s.reporter.(UserContextSetter); ok {
		setter.SetUserContext(user)
	}
}
