package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
)

// Decoder is the verifying half of Codec.
type Decoder interface {
	Decode(raw string) (*domain.Claims, error)
}

// UserFinder is the subset of the user store the verifier needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Verifier binds a presented token to a live user record.
type Verifier struct {
	dec   Decoder
	users UserFinder
}

func NewVerifier(dec Decoder, users UserFinder) *Verifier {
	return &Verifier{dec: dec, users: users}
}

// VerifyAccess resolves an access token to its user. Checks run in order and
// stop at the first failure: presence, decode, type, user lookup, and the
// email snapshot against the user's current email.
//
// A returned error is either a *domain.AuthError or a wrapped store failure.
func (v *Verifier) VerifyAccess(ctx context.Context, raw string) (*domain.User, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.Denied(domain.CodeMissingToken)
	}

	claims, err := v.dec.Decode(raw)
	if err != nil {
		return nil, err
	}

	if claims.Type != domain.AccessToken {
		return nil, domain.Denied(domain.CodeInvalidTokenType)
	}

	user, err := v.lookup(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if domain.NormalizeEmail(user.Email) != domain.NormalizeEmail(claims.Email) {
		return nil, domain.Denied(domain.CodeUserMismatch)
	}

	return user, nil
}

// VerifyRefresh resolves a refresh token to its user. Unlike VerifyAccess it
// does not compare the email snapshot.
func (v *Verifier) VerifyRefresh(ctx context.Context, raw string) (*domain.User, error) {
	claims, err := v.dec.Decode(raw)
	if err != nil {
		return nil, err
	}

	if claims.Type != domain.RefreshToken {
		return nil, domain.Denied(domain.CodeInvalidTokenType)
	}

	return v.lookup(ctx, claims.UserID)
}

func (v *Verifier) lookup(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.Denied(domain.CodeUserNotFound)
	}
	user, err := v.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Denied(domain.CodeUserNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
