package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

const issuer = "funnel"

// Signer issues and verifies the HS256 token carried by a session.
type Signer struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewSigner creates a Signer. A non-positive ttl uses DefaultSessionTTL.
func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = types.DefaultSessionTTL
	}
	return &Signer{
		secret: secret,
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer)),
	}
}

// Sign returns a token for the user and its expiry time.
func (s *Signer) Sign(u types.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":  u.UserID,
		"role": u.Role,
		"iss":  issuer,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return tok, exp, nil
}

// Verify checks the token signature and expiry and that it was issued for
// the session's user and role.
func (s *Signer) Verify(sess *types.Session) error {
	token, err := s.parser.Parse(sess.Token, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return types.ErrSessionExpired
		}
		return fmt.Errorf("verify session: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("verify session: invalid claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != sess.UserID {
		return errors.New("verify session: subject mismatch")
	}
	if role, _ := claims["role"].(string); role != sess.Role {
		return errors.New("verify session: role mismatch")
	}
	return nil
}
