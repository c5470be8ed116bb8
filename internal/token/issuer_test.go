package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/metrics"
	"github.com/ErlanBelekov/dual-auth/internal/token"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEncoder struct{}

func (failingEncoder) Encode(domain.Claims, time.Time) (string, error) {
	return "", errors.New("hsm unavailable")
}

var alice = &domain.User{ID: "user-1", Email: "alice@example.com"}

func TestIssuer_AccessAndRefreshLifetimes(t *testing.T) {
	clk := newClock()
	c := newCodec(t, clk)
	iss := token.NewIssuer(c).WithClock(clk.Now)

	access, accessExp, err := iss.IssueAccess(alice)
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(24*time.Hour), accessExp)

	refresh, refreshExp, err := iss.IssueRefresh(alice)
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(7*24*time.Hour), refreshExp)

	ac, err := c.Decode(access)
	require.NoError(t, err)
	assert.Equal(t, domain.AccessToken, ac.Type)
	assert.Equal(t, alice.ID, ac.UserID)
	assert.Equal(t, alice.Email, ac.Email)
	assert.Equal(t, accessExp.Unix(), ac.ExpiresAt.Unix())

	rc, err := c.Decode(refresh)
	require.NoError(t, err)
	assert.Equal(t, domain.RefreshToken, rc.Type)
	assert.Equal(t, refreshExp.Unix(), rc.ExpiresAt.Unix())
}

func TestIssuer_PairExpiresAtIsAccessExpiry(t *testing.T) {
	clk := newClock()
	iss := token.NewIssuer(newCodec(t, clk)).WithClock(clk.Now)

	pair, err := iss.IssuePair(alice)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Token)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.Token, pair.RefreshToken)
	assert.Equal(t, clk.t.Add(domain.AccessTokenTTL), pair.ExpiresAt)
}

func TestIssuer_SigningFailureIsGenerationError(t *testing.T) {
	iss := token.NewIssuer(failingEncoder{})

	_, _, err := iss.IssueAccess(alice)
	assert.Equal(t, domain.CodeTokenGenerationError, domain.CodeOf(err))

	pair, err := iss.IssuePair(alice)
	assert.Nil(t, pair)
	assert.Equal(t, domain.CodeTokenGenerationError, domain.CodeOf(err))
}

func TestIssuer_CountsIssuedTokens(t *testing.T) {
	clk := newClock()
	iss := token.NewIssuer(newCodec(t, clk)).WithClock(clk.Now)

	counter := metrics.TokensIssuedTotal.WithLabelValues(string(domain.RefreshToken))
	before := testutil.ToFloat64(counter)

	_, err := iss.IssuePair(alice)
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
