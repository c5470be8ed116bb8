package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret = errors.New("token: signing secret must not be empty")
	errMissingIat  = errors.New("token: iat claim is required")
)

// Codec signs and verifies HS256 tokens with a single shared secret.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Codec)

// WithClock overrides the time source used to stamp iat and check exp.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Encode stamps exp and iat onto claims and returns the compact signed token.
func (c *Codec) Encode(claims domain.Claims, expiresAt time.Time) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	claims.IssuedAt = jwt.NewNumericDate(c.now())

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, exp and iat. Every failure is returned as a
// *domain.AuthError classified by cause.
func (c *Codec) Decode(raw string) (claims *domain.Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, domain.DeniedWith(domain.CodeTokenError, fmt.Errorf("%v", r))
		}
	}()

	parsed := &domain.Claims{}
	if _, perr := c.parser.ParseWithClaims(raw, parsed, c.key); perr != nil {
		return nil, classify(perr)
	}
	if parsed.IssuedAt == nil {
		return nil, domain.DeniedWith(domain.CodeInvalidToken, errMissingIat)
	}
	return parsed, nil
}

// Expired reports whether raw cannot be decoded or its exp has passed.
func (c *Codec) Expired(raw string) bool {
	claims, err := c.Decode(raw)
	if err != nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}

// UserID returns the user_id of a validly signed, unexpired token without
// consulting the user store.
func (c *Codec) UserID(raw string) (string, bool) {
	claims, err := c.Decode(raw)
	if err != nil || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}

func (c *Codec) key(_ *jwt.Token) (any, error) {
	return c.secret, nil
}

func classify(err error) *domain.AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.DeniedWith(domain.CodeTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return domain.DeniedWith(domain.CodeInvalidIat, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return domain.DeniedWith(domain.CodeInvalidToken, err)
	default:
		return domain.DeniedWith(domain.CodeTokenError, err)
	}
}
