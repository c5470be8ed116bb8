package token

import (
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/metrics"
)

// Encoder is the signing half of Codec.
type Encoder interface {
	Encode(claims domain.Claims, expiresAt time.Time) (string, error)
}

// Issuer mints access and refresh tokens for a user.
type Issuer struct {
	enc        Encoder
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(enc Encoder) *Issuer {
	return &Issuer{
		enc:        enc,
		now:        time.Now,
		accessTTL:  domain.AccessTokenTTL,
		refreshTTL: domain.RefreshTokenTTL,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

// IssueAccess returns a 24h access token and its expiry.
func (i *Issuer) IssueAccess(user *domain.User) (string, time.Time, error) {
	return i.issue(user, domain.AccessToken, i.accessTTL)
}

// IssueRefresh returns a 7d refresh token and its expiry.
func (i *Issuer) IssueRefresh(user *domain.User) (string, time.Time, error) {
	return i.issue(user, domain.RefreshToken, i.refreshTTL)
}

// IssuePair mints a fresh access+refresh pair. ExpiresAt is the access
// token's expiry. Any signing failure is a token_generation_error.
func (i *Issuer) IssuePair(user *domain.User) (*domain.TokenPair, error) {
	access, expiresAt, err := i.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, _, err := i.IssueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{Token: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (i *Issuer) issue(user *domain.User, typ domain.TokenType, ttl time.Duration) (string, time.Time, error) {
	expiresAt := i.now().Add(ttl)
	signed, err := i.enc.Encode(domain.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Type:   typ,
	}, expiresAt)
	if err != nil {
		return "", time.Time{}, domain.DeniedWith(domain.CodeTokenGenerationError, err)
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(typ)).Inc()
	return signed, expiresAt, nil
}
