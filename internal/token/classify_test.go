package token

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want domain.Code
	}{
		"expired":         {fmt.Errorf("wrap: %w", jwt.ErrTokenExpired), domain.CodeTokenExpired},
		"future iat":      {jwt.ErrTokenUsedBeforeIssued, domain.CodeInvalidIat},
		"malformed":       {jwt.ErrTokenMalformed, domain.CodeInvalidToken},
		"bad signature":   {jwt.ErrTokenSignatureInvalid, domain.CodeInvalidToken},
		"unknown failure": {errors.New("decoder exploded"), domain.CodeTokenError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := classify(tc.err).Code; got != tc.want {
				t.Errorf("classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
