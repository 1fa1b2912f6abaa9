// Package session issues and verifies signed session tokens and carries them
// in an HTTP cookie. Tokens are self-contained; nothing is stored server-side,
// so a session cannot be revoked before it expires.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidSession is returned for every verification failure: malformed
// input, bad signature, wrong algorithm, missing or past expiry.
var ErrInvalidSession = errors.New("invalid session")

// Session is the verified content of a token.
type Session struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the JWT payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with HMAC-SHA256.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// Issue returns a token for subjectID that expires after ttl.
func (c *Codec) Issue(subjectID string, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("session: empty subject")
	}
	now := c.now()
	claims := &Claims{
		UserID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the signature and expiry of token.
func (c *Codec) Verify(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidSession
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidSession
	}
	if claims.Subject == "" || claims.Subject != claims.UserID {
		return Session{}, ErrInvalidSession
	}
	s := Session{
		SubjectID: claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}
