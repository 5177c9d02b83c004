package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	cloud_errors "pats-cloud/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// CookieName is the session cookie the gate looks for.
const CookieName = "patscloud_session"

// Manager is the authorization gate: a single shared password and an
// in-memory registry of opaque session tokens. Tokens expire after the
// configured TTL and die with the process.
type Manager struct {
	hash []byte // nil when no password is configured
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
}

func NewManager(password string, ttl time.Duration) (*Manager, error) {
	m := &Manager{ttl: ttl, sessions: make(map[string]time.Time)}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		m.hash = hash
	}
	return m, nil
}

// PasswordRequired reports whether a password was configured at startup.
func (m *Manager) PasswordRequired() bool {
	return m.hash != nil
}

// Login checks the password and mints a session token. With no password
// configured any login succeeds; the handler attaches a warning in that
// case.
func (m *Manager) Login(password string) (string, error) {
	if m.hash != nil {
		if err := bcrypt.CompareHashAndPassword(m.hash, []byte(password)); err != nil {
			return "", cloud_errors.ErrUnauthorized
		}
	}
	token := newToken()
	m.mu.Lock()
	m.sessions[token] = time.Now().Add(m.ttl)
	m.mu.Unlock()
	return token, nil
}

// Logout drops a session. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Valid reports whether token names a live session, dropping it if expired.
func (m *Manager) Valid(token string) bool {
	if token == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(m.sessions, token)
		return false
	}
	return true
}

// TTL returns the session lifetime, for cookie max-age.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failing means nothing else is trustworthy
	}
	return hex.EncodeToString(buf)
}
