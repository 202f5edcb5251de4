package routing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-dicontainer/framework/container"
)

// Scope names and widths of the web scopes. A session outlives its
// requests, so it is wider.
const (
	RequestScopeName = "request"
	SessionScopeName = "session"

	RequestScopeWidth = 100
	SessionScopeWidth = 1000
)

// NewRequestScope creates the scope of components living for one request.
func NewRequestScope() *container.ContextualScope {
	return container.NewContextualScope(RequestScopeName, RequestScopeWidth)
}

// NewSessionScope creates the scope of components living for one browser
// session.
func NewSessionScope() *container.ContextualScope {
	return container.NewContextualScope(SessionScopeName, SessionScopeWidth)
}

// ── Request scope ────────────────────────────────────────────────────────────

// RequestScope runs every request inside a fresh context of scope. The
// request's components are destroyed when the handler returns or panics.
func RequestScope(scope *container.ContextualScope, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			err := scope.Run(req.Context(), func(ctx context.Context) error {
				next.ServeHTTP(w, req.WithContext(ctx))
				return nil
			})
			if err != nil {
				log.Error("request scope teardown failed",
					zap.String("request_id", middleware.GetReqID(req.Context())),
					zap.Error(err))
			}
		})
	}
}

// ── Session scope ────────────────────────────────────────────────────────────

type session struct {
	sc       *container.ScopeContext
	lastSeen time.Time
}

// Sessions keeps one context of a session scope per client, identified by
// a cookie. Idle sessions expire after maxAge.
type Sessions struct {
	scope  *container.ContextualScope
	cookie string
	maxAge time.Duration
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	stop     chan struct{}
	sweeping sync.WaitGroup
}

// NewSessions creates a session store for scope.
func NewSessions(scope *container.ContextualScope, cookie string, maxAge time.Duration, log *zap.Logger) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{
		scope:    scope,
		cookie:   cookie,
		maxAge:   maxAge,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Middleware attaches the client's session context to every request,
// starting a new session when the cookie is missing, unknown or expired.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var id string
		if c, err := req.Cookie(s.cookie); err == nil {
			id = c.Value
		}
		id, sc := s.acquire(req.Context(), id)
		http.SetCookie(w, &http.Cookie{
			Name:     s.cookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.maxAge.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		next.ServeHTTP(w, req.WithContext(sc.Attach(req.Context())))
	})
}

func (s *Sessions) acquire(ctx context.Context, id string) (string, *container.ScopeContext) {
	now := s.now()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && !sess.sc.Closed() && now.Sub(sess.lastSeen) <= s.maxAge {
		sess.lastSeen = now
		s.mu.Unlock()
		return id, sess.sc
	}
	if ok {
		delete(s.sessions, id)
	}
	fresh := &session{sc: s.scope.Open(), lastSeen: now}
	freshID := uuid.NewString()
	s.sessions[freshID] = fresh
	s.mu.Unlock()

	if ok {
		s.close(ctx, id, sess.sc)
	}
	return freshID, fresh.sc
}

// Invalidate ends the session id, destroying its components.
func (s *Sessions) Invalidate(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.sc.Close(ctx)
}

// Sweep closes every session idle for longer than maxAge and returns how
// many were closed.
func (s *Sessions) Sweep(ctx context.Context) int {
	now := s.now()
	var expired []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.maxAge {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.Invalidate(ctx, id); err != nil {
			s.log.Error("session teardown failed", zap.String("session", id), zap.Error(err))
		}
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepEvery starts closing expired sessions every interval, so idle
// sessions are destroyed even when their client never returns. It stops
// when Close is called. Calling it again while running does nothing.
func (s *Sessions) SweepEvery(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil || interval <= 0 {
		return
	}
	stop := make(chan struct{})
	s.stop = stop

	ticker := time.NewTicker(interval)
	s.sweeping.Add(1)
	go func() {
		defer s.sweeping.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if n := s.Sweep(context.Background()); n > 0 {
					s.log.Debug("expired sessions closed", zap.Int("sessions", n))
				}
			}
		}
	}()
}

// Close stops the sweeper and ends every session.
func (s *Sessions) Close(ctx context.Context) error {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*session)
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		s.sweeping.Wait()
	}

	var errs []error
	for _, sess := range all {
		errs = append(errs, sess.sc.Close(ctx))
	}
	return errors.Join(errs...)
}

func (s *Sessions) close(ctx context.Context, id string, sc *container.ScopeContext) {
	if err := sc.Close(ctx); err != nil {
		s.log.Error("session teardown failed", zap.String("session", id), zap.Error(err))
	}
}
