package pkg

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Identity is the verified subject bound to a session credential.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

// SessionManager verifies provider-issued ID tokens and mints/verifies the
// session credential carried in the auth cookie. Both are HS256 JWTs signed
// with the configured secret.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL returns the session lifetime, used for the cookie max-age.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// VerifyIDToken checks a provider-issued login token and extracts the subject.
func (m *SessionManager) VerifyIDToken(tokenString string) (*Identity, error) {
	return m.parse(tokenString)
}

// IssueSessionToken mints the session credential set as the auth cookie.
func (m *SessionManager) IssueSessionToken(identity *Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   identity.SubjectID,
		"email": identity.Email,
		"name":  identity.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing session token")
	}
	return signed, nil
}

// VerifySessionToken checks the session credential presented on a connection
// or request and returns the bound identity. Expired, malformed or tampered
// tokens all fail.
func (m *SessionManager) VerifySessionToken(tokenString string) (*Identity, error) {
	return m.parse(tokenString)
}

func (m *SessionManager) parse(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("sub claim missing from token")
	}

	identity := &Identity{SubjectID: sub}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
