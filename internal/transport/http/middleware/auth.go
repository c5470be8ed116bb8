package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	ctxlog "github.com/ErlanBelekov/dual-auth/internal/log"
	"github.com/ErlanBelekov/dual-auth/internal/metrics"
	"github.com/ErlanBelekov/dual-auth/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	gateKey  = "auth_gate"
	actorKey = "current_actor"
)

// LoginPath is where page clients are sent when they must log in.
const LoginPath = "/login"

// AccessVerifier resolves an access token to a user.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (*domain.User, error)
}

// UserFinder resolves a session's user id.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// identityResolver is one way of answering "who is making this request".
type identityResolver interface {
	resolve(c *gin.Context) (*domain.User, error)
}

// bearerIdentity resolves API callers from a bearer token.
type bearerIdentity struct {
	verifier AccessVerifier
}

func (b bearerIdentity) resolve(c *gin.Context) (*domain.User, error) {
	raw := BearerToken(c)
	if raw == "" {
		return nil, domain.Denied(domain.CodeMissingToken)
	}
	return b.verifier.VerifyAccess(c.Request.Context(), raw)
}

// sessionIdentity resolves page clients from the session's user_id.
type sessionIdentity struct {
	users UserFinder
}

func (s sessionIdentity) resolve(c *gin.Context) (*domain.User, error) {
	sess := SessionFrom(c)
	if sess == nil || sess.UserID == "" {
		return nil, domain.Denied(domain.CodeAuthRequired)
	}
	user, err := s.users.FindByID(c.Request.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Denied(domain.CodeAuthRequired)
		}
		return nil, err
	}
	return user, nil
}

// actor is the memoized outcome of identity resolution for one request.
type actor struct {
	user *domain.User
	err  error
}

// Gate is the per-request auth policy: identity resolution, require-login
// enforcement and API token gating.
type Gate struct {
	bearer  identityResolver
	session identityResolver
	logger  *slog.Logger
}

func NewGate(verifier AccessVerifier, users UserFinder, logger *slog.Logger) *Gate {
	return &Gate{
		bearer:  bearerIdentity{verifier: verifier},
		session: sessionIdentity{users: users},
		logger:  logger.With("component", "auth_gate"),
	}
}

// Attach makes the gate available to CurrentUser for the rest of the chain.
// Nothing is resolved until someone asks.
func (g *Gate) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(gateKey, g)
		c.Next()
	}
}

// RequireLogin lets the request through only with a resolved identity.
// Page clients are redirected to the login page with a notice; API clients
// get 401 auth_required.
func (g *Gate) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		a := g.current(c)
		if a.user != nil {
			c.Next()
			return
		}
		if !isDenial(a.err) {
			g.internalError(c, a.err)
			return
		}

		metrics.AuthDenialsTotal.WithLabelValues(string(domain.CodeAuthRequired)).Inc()

		if !WantsJSON(c) {
			if sess := SessionFrom(c); sess != nil {
				sess.SetFlash(session.FlashAlert, "Please log in to access this page.")
				if err := SaveSession(c); err != nil {
					g.logger.ErrorContext(c.Request.Context(), "save session", "error", err)
				}
			}
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "Authentication required",
			"message": "Please provide a valid token",
			"code":    domain.CodeAuthRequired,
		})
	}
}

// Authenticate is the API token gate. It passes page requests through
// untouched; API requests without a verified bearer token are rejected with
// the verifier's own code, so callers can tell a missing token from a
// malformed, expired or mistyped one.
func (g *Gate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !WantsJSON(c) {
			c.Next()
			return
		}

		a := g.current(c)
		if a.user != nil {
			c.Next()
			return
		}

		var denial *domain.AuthError
		if !errors.As(a.err, &denial) {
			g.internalError(c, a.err)
			return
		}

		metrics.AuthDenialsTotal.WithLabelValues(string(denial.Code)).Inc()
		g.logger.DebugContext(c.Request.Context(), "token rejected", "code", denial.Code, "detail", denial.Detail)

		body := gin.H{"error": denial.Message, "code": denial.Code}
		if denial.Code == domain.CodeMissingToken {
			body["message"] = "Authorization token is required"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, body)
	}
}

// CurrentUser returns the caller's identity, resolving it on first use and
// caching the outcome for the rest of the request. It returns nil for
// anonymous callers and when no gate is attached.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(gateKey)
	if !ok {
		return nil
	}
	return v.(*Gate).current(c).user
}

func (g *Gate) current(c *gin.Context) *actor {
	if v, ok := c.Get(actorKey); ok {
		return v.(*actor)
	}

	strategy := g.session
	if WantsJSON(c) {
		strategy = g.bearer
	}

	user, err := strategy.resolve(c)
	a := &actor{user: user, err: err}
	c.Set(actorKey, a)

	switch {
	case user != nil:
		c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), user.ID))
	case !isDenial(err):
		g.logger.ErrorContext(c.Request.Context(), "resolve identity", "error", err)
	}
	return a
}

// forgetCurrentUser drops the memoized identity after the session changed
// hands mid-request.
func forgetCurrentUser(c *gin.Context) {
	delete(c.Keys, actorKey)
}

func (g *Gate) internalError(c *gin.Context, err error) {
	g.logger.ErrorContext(c.Request.Context(), "auth gate", "error", err)
	if WantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  domain.CodeInternalError,
		})
		return
	}
	c.AbortWithStatus(http.StatusInternalServerError)
}

// BearerToken extracts the credential from "Authorization: Bearer <t>",
// falling back to a token query or form parameter.
func BearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, prefix) {
		if t := strings.TrimSpace(h[len(prefix):]); t != "" {
			return t
		}
	}
	if t := c.Query("token"); t != "" {
		return t
	}
	return c.PostForm("token")
}

func isDenial(err error) bool {
	var ae *domain.AuthError
	return errors.As(err, &ae)
}
