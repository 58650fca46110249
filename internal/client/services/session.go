package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/dmitrijs2005/imagegen/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// SessionState is a snapshot of the session. Authenticated implies Token is
// non-empty and passed the identity check at least once.
type SessionState struct {
	Token         string
	Authenticated bool
	CheckingAuth  bool
}

// Session owns the bearer token: it restores it at startup, validates new
// candidates and keeps the shared API client in sync.
//
// Contract:
//   - Restore: load the persisted token and validate it. Any failure leaves
//     the session unauthenticated and removes the persisted token.
//     CheckingAuth is cleared exactly once, whichever branch is taken.
//   - Login: reject candidates shorter than common.MinTokenLength without a
//     network call; otherwise validate, persist and attach the token.
//   - Logout: clear memory, storage and the API client token. Idempotent.
type Session interface {
	Restore(ctx context.Context) SessionState
	Login(ctx context.Context, candidate string) bool
	Logout(ctx context.Context) error

	State() SessionState
	Token() string
	// ExpiresAt reads the exp claim when the token is a JWT. The signature is
	// not checked; the value is informational only.
	ExpiresAt() (time.Time, bool)
	// Subscribe registers fn for state changes and returns a function
	// removing it.
	Subscribe(fn func(SessionState)) func()
}

type session struct {
	api   client.Client
	store metadata.TokenStorage
	log   logging.Logger
	now   func() time.Time

	checked sync.Once

	mu    sync.Mutex
	state SessionState
	subs  map[int]func(SessionState)
	next  int
}

// NewSession constructs a Session around the shared API client. The returned
// session starts with CheckingAuth set until Restore finishes.
func NewSession(api client.Client, store metadata.TokenStorage, log logging.Logger) Session {
	if log == nil {
		log = logging.Nop()
	}
	return &session{
		api:   api,
		store: store,
		log:   log.With("component", "session"),
		now:   time.Now,
		state: SessionState{CheckingAuth: true},
		subs:  make(map[int]func(SessionState)),
	}
}

func (s *session) Restore(ctx context.Context) SessionState {
	s.restore(ctx)
	s.checked.Do(func() {
		s.update(func(st *SessionState) { st.CheckingAuth = false })
	})
	return s.State()
}

func (s *session) restore(ctx context.Context) {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to load persisted token", "error", err)
		return
	}
	if token == "" {
		s.log.Debug(ctx, "no persisted token")
		return
	}

	log := s.log.With("token", common.MaskToken(token))

	if !common.ValidTokenFormat(token) {
		log.Warn(ctx, "persisted token is malformed, discarding")
		s.reset(ctx)
		return
	}

	if _, err := s.api.WithToken(token).GetIdentity(ctx); err != nil {
		if errors.Is(err, client.ErrCancelled) {
			log.Info(ctx, "token check cancelled")
			return
		}
		log.Warn(ctx, "persisted token rejected, discarding", "error", err)
		s.reset(ctx)
		return
	}

	if err := s.store.Save(ctx, token, s.now()); err != nil {
		log.Warn(ctx, "failed to record token validation time", "error", err)
	}
	s.commit(token)
	log.Info(ctx, "session restored")
}

func (s *session) Login(ctx context.Context, candidate string) bool {
	if !common.ValidTokenFormat(candidate) {
		s.log.Debug(ctx, "login rejected", "error", common.ErrInvalidToken)
		return false
	}

	log := s.log.With("token", common.MaskToken(candidate))

	if _, err := s.api.WithToken(candidate).GetIdentity(ctx); err != nil {
		log.Warn(ctx, "login failed", "error", err)
		s.reset(ctx)
		return false
	}

	if err := s.store.Save(ctx, candidate, s.now()); err != nil {
		log.Error(ctx, "failed to persist token", "error", err)
		s.reset(ctx)
		return false
	}

	s.commit(candidate)
	log.Info(ctx, "logged in")
	return true
}

func (s *session) Logout(ctx context.Context) error {
	return s.reset(ctx)
}

func (s *session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) Token() string {
	return s.State().Token
}

func (s *session) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *session) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *session) commit(token string) {
	s.update(func(st *SessionState) {
		st.Token = token
		st.Authenticated = true
	})
	s.api.SetToken(token)
}

// reset drops the token everywhere. The in-memory state is cleared even if
// the storage delete fails.
func (s *session) reset(ctx context.Context) error {
	s.update(func(st *SessionState) {
		st.Token = ""
		st.Authenticated = false
	})
	s.api.ClearToken()

	if err := s.store.Remove(ctx); err != nil {
		s.log.Error(ctx, "failed to remove persisted token", "error", err)
		return err
	}
	return nil
}

func (s *session) update(fn func(*SessionState)) {
	s.mu.Lock()
	before := s.state
	fn(&s.state)
	after := s.state
	subs := make([]func(SessionState), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	if before == after {
		return
	}
	for _, f := range subs {
		f(after)
	}
}
