package session

import (
	"net/http"
	"time"
)

const (
	CookieName = "session"
	DefaultTTL = 7 * 24 * time.Hour
)

// Manager reads and writes the session cookie.
type Manager struct {
	codec  *Codec
	ttl    time.Duration
	secure bool
}

// NewManager returns a Manager issuing tokens valid for ttl. secure should
// only be false for plain-HTTP local development.
func NewManager(codec *Codec, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{codec: codec, ttl: ttl, secure: secure}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create issues a fresh token for subjectID and sets it on w.
func (m *Manager) Create(w http.ResponseWriter, subjectID string) error {
	token, err := m.codec.Issue(subjectID, m.ttl)
	if err != nil {
		return err
	}
	expires := m.codec.now().Add(m.ttl)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the raw token from the request cookie.
func (m *Manager) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Resolve reads and verifies the session carried by r.
func (m *Manager) Resolve(r *http.Request) (Session, bool) {
	token, ok := m.Read(r)
	if !ok {
		return Session{}, false
	}
	s, err := m.codec.Verify(token)
	if err != nil {
		return Session{}, false
	}
	return s, true
}

// Refresh reissues the cookie once s has used up half of its lifetime.
// It reports whether a new cookie was written.
func (m *Manager) Refresh(w http.ResponseWriter, s Session) (bool, error) {
	if s.ExpiresAt.Sub(m.codec.now()) > m.ttl/2 {
		return false, nil
	}
	if err := m.Create(w, s.SubjectID); err != nil {
		return false, err
	}
	return true, nil
}

// Destroy expires the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
