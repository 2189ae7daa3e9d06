package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"salesdash/internal/cache"
	"salesdash/internal/log"
)

// CookieName is the session cookie.
const CookieName = "salesdash_session"

// Config bounds the session store.
type Config struct {
	MaxSessions int
	TTL         time.Duration
	// Secure marks the cookie Secure; enable behind TLS.
	Secure bool
}

// Store holds sessions in an LRU cache with sliding expiry.
type Store struct {
	cfg    Config
	logger *log.Logger
	lru    *cache.LRUCache[*Session]
	now    func() time.Time
}

// NewStore creates a session store.
func NewStore(cfg Config, logger *log.Logger) *Store {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if logger == nil {
		logger = log.Discard()
	}
	s := &Store{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentSession),
		now:    time.Now,
	}
	s.lru = cache.NewLRUCache(cfg.MaxSessions, cfg.TTL,
		cache.WithSlidingExpiry[*Session](),
		cache.WithEvictCallback(func(id string, sess *Session, reason cache.EvictReason) {
			s.logger.Debug("Session evicted", log.FieldSession, id, "reason", string(reason), "parts", sess.Count())
		}),
	)
	return s
}

// Cleaner exposes the store to a cache.Manager.
func (s *Store) Cleaner() cache.Cleaner { return s.lru }

// Len returns the number of live sessions.
func (s *Store) Len() int { return s.lru.Size() }

// Get returns a live session by id.
func (s *Store) Get(id string) (*Session, bool) {
	return s.lru.Get(id)
}

// Create starts a new session.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString(), s.now())
	s.lru.Set(sess.ID, sess)
	return sess
}

// Resolve returns the request's session, creating one and setting the cookie
// when the cookie is absent, malformed or expired.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			if sess, ok := s.Get(c.Value); ok {
				return sess
			}
		}
	}

	sess := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Debug("Session created", log.FieldSession, sess.ID)
	return sess
}
