package web

import (
	"container/list"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataadmin/internal/audit"
	"github.com/JonMunkholm/dataadmin/internal/config"
	"github.com/JonMunkholm/dataadmin/internal/core"
)

// session is one browser's grid. Each session owns exactly one controller.
type session struct {
	id       string
	ctrl     *core.Controller
	lastSeen time.Time
	elem     *list.Element
}

// sessionStore maps cookie ids to sessions. Sessions expire after an idle
// period; when the store is full the least recently used one is evicted.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	lru      *list.List // front is most recently used

	idle          time.Duration
	max           int
	newController func() *core.Controller
	now           func() time.Time
}

func newSessionStore(cfg config.SessionConfig, newController func() *core.Controller) *sessionStore {
	return &sessionStore{
		sessions:      make(map[string]*session),
		lru:           list.New(),
		idle:          cfg.IdleTimeout,
		max:           cfg.MaxSessions,
		newController: newController,
		now:           time.Now,
	}
}

// get returns a live session and marks it used.
func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		s.removeLocked(sess)
		return nil, false
	}
	sess.lastSeen = now
	s.lru.MoveToFront(sess.elem)
	return sess, true
}

// create starts a new session with a fresh controller.
func (s *sessionStore) create() *session {
	sess := &session{
		id:   uuid.NewString(),
		ctrl: s.newController(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.max > 0 && len(s.sessions) >= s.max {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*session)
		slog.Debug("session evicted", "session", evicted.id)
		s.removeLocked(evicted)
	}

	sess.lastSeen = s.now()
	sess.elem = s.lru.PushFront(sess)
	s.sessions[sess.id] = sess
	return sess
}

// sweep removes expired sessions and returns how many were dropped.
func (s *sessionStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for e := s.lru.Back(); e != nil; {
		sess := e.Value.(*session)
		prev := e.Prev()
		if !s.expired(sess, now) {
			// Everything in front was used more recently.
			break
		}
		s.removeLocked(sess)
		removed++
		e = prev
	}
	return removed
}

// run sweeps every interval until ctx is done.
func (s *sessionStore) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				slog.Debug("sessions expired", "count", n)
			}
		}
	}
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionStore) expired(sess *session, now time.Time) bool {
	return s.idle > 0 && now.Sub(sess.lastSeen) > s.idle
}

func (s *sessionStore) removeLocked(sess *session) {
	s.lru.Remove(sess.elem)
	delete(s.sessions, sess.id)
}

type sessionKey struct{}

// withSession resolves the session cookie, creating a session (and cookie)
// on first visit or after expiry, and stores the session's controller in
// the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *session
		if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
			sess, _ = s.sessions.get(c.Value)
		}
		if sess == nil {
			sess = s.sessions.create()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.Session.CookieName,
				Value:    sess.id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cfg.Session.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = audit.ContextWithSession(ctx, sess.id)
		ctx = WithRequestMetadata(ctx, r)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// controllerFrom returns the grid controller of the request's session.
func controllerFrom(ctx context.Context) *core.Controller {
	if sess, ok := ctx.Value(sessionKey{}).(*session); ok {
		return sess.ctrl
	}
	return nil
}
