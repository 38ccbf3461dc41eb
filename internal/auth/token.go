package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/recipebox/recipebox/internal/model"
)

// Token verification errors.
var (
	ErrMissingHeader   = errors.New("missing authorization header")
	ErrMalformedHeader = errors.New("invalid authorization header format")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrNoSecret        = errors.New("token secret is not configured")
)

// validMethods lists the HMAC algorithms accepted for bearer tokens.
var validMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// claims is the token payload issued by the user service.
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
}

// Verifier validates bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a Verifier. A nil clock defaults to time.Now.
func NewVerifier(secret string, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		secret: []byte(secret),
		now:    now,
	}
}

// ParseAuthorizationHeader extracts the token from an "Authorization: Bearer <token>" value.
func ParseAuthorizationHeader(value string) (string, error) {
	if value == "" {
		return "", ErrMissingHeader
	}

	parts := strings.Split(value, " ")
	if len(parts) != 2 {
		return "", ErrMalformedHeader
	}
	if !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMalformedHeader
	}

	return parts[1], nil
}

// Verify checks signature and time-based claims and returns the caller identity.
func (v *Verifier) Verify(token string) (*model.Identity, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoSecret
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods(validMethods),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, reason(err))
	}

	userID := parsed.UserID
	if userID == "" {
		userID = parsed.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}

	identity := &model.Identity{
		UserID: userID,
		Email:  parsed.Email,
	}
	if parsed.ExpiresAt != nil {
		identity.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}

	return identity, nil
}

// Sign mints an HS256 token for the identity. Used by tests and the dev
// token tool; production tokens are issued by the user service.
func (v *Verifier) Sign(identity *model.Identity, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}

	now := v.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: identity.UserID,
		Email:  identity.Email,
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// reason maps jwt library errors to a short loggable string.
func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return "not_valid_yet"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "bad_algorithm"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
