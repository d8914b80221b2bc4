// internal/session/session.go
//
// Intake – form-session registry.
//
// Context
//   Each page load of /apply starts one form-fill session: a form.Controller
//   plus the Flash queue its toasts land in.  The browser keeps only an
//   opaque id in the `intake_session` cookie; the session itself lives in
//   this in-memory Store until it idles out or is pushed out by LRU pressure.
//
//   Sessions are stored in a sync.Map with an atomic lastSeen timestamp, so
//   lookups on the hot path never take a lock.  Sweep (evictor.go) removes
//   idle entries and, when the map is over capacity, the least recently
//   used ones.
//
//------------------------------------------------------------------------------

package session

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/intake/internal/form"
	"github.com/yanizio/intake/internal/message"
	"github.com/yanizio/intake/internal/metrics"
)

// CookieName carries the session id.
const CookieName = "intake_session"

// Static defaults used when the configuration leaves a value at zero.
const (
	DefaultIdleTTL    = 30 * time.Minute
	DefaultMaxEntries = 10000
	EvictInterval     = time.Minute
)

// Builder returns the controller for a new session.  notifier is the
// session's Flash queue.
type Builder func(notifier message.Notifier) *form.Controller

// Session is one live form-fill session.
type Session struct {
	ID         string
	Controller *form.Controller
	Flash      *message.Flash

	lastSeen atomic.Int64 // UnixNano
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// Store is safe for concurrent use.
type Store struct {
	build      Builder
	idleTTL    time.Duration
	maxEntries int
	secure     bool
	now        func() time.Time

	m     sync.Map // id → *Session
	count atomic.Int64
}

// Options tunes a Store.  Zero values select the defaults above.
type Options struct {
	IdleTTL    time.Duration
	MaxEntries int
	// SecureCookie forces the Secure attribute even on plain-HTTP requests,
	// for deployments behind a TLS-terminating proxy.
	SecureCookie bool
}

// New returns an empty Store.  Call Run to start the evictor.
func New(build Builder, opt Options) *Store {
	if opt.IdleTTL <= 0 {
		opt.IdleTTL = DefaultIdleTTL
	}
	if opt.MaxEntries <= 0 {
		opt.MaxEntries = DefaultMaxEntries
	}
	return &Store{
		build:      build,
		idleTTL:    opt.IdleTTL,
		maxEntries: opt.MaxEntries,
		secure:     opt.SecureCookie,
		now:        time.Now,
	}
}

// Create starts a fresh session.
func (st *Store) Create() *Session {
	flash := &message.Flash{}
	s := &Session{
		ID:         uuid.NewString(),
		Controller: st.build(message.Logged(flash)),
		Flash:      flash,
	}
	s.touch(st.now())
	st.m.Store(s.ID, s)
	st.count.Add(1)
	metrics.ActiveSessions.Inc()
	return s
}

// Get returns the live session for id and refreshes its idle clock.
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.m.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	s.touch(st.now())
	return s, true
}

// FromRequest resolves the session named by the request cookie.
func (st *Store) FromRequest(r *http.Request) (*Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return nil, false
	}
	return st.Get(c.Value)
}

// SetCookie binds s to the browser.  The cookie is scoped to the form path
// and expires with the idle TTL.
func (st *Store) SetCookie(w http.ResponseWriter, r *http.Request, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/apply",
		HttpOnly: true,
		Secure:   st.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(st.idleTTL / time.Second),
	})
}

// Remove drops a session immediately.
func (st *Store) Remove(id string) {
	if _, ok := st.m.LoadAndDelete(id); ok {
		st.count.Add(-1)
		metrics.ActiveSessions.Dec()
	}
}

// Len reports the number of live sessions.
func (st *Store) Len() int { return int(st.count.Load()) }
