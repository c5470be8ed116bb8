package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/dual-auth/internal/session"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// CookieConfig controls the browser session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

type sessionState struct {
	store  *session.Store
	cookie CookieConfig
	sess   *session.Session
}

// Sessions loads the browser session named by the cookie. A session store
// outage degrades to an anonymous session rather than failing the request.
func Sessions(store *session.Store, cookie CookieConfig, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "sessions")
	return func(c *gin.Context) {
		id, _ := c.Cookie(cookie.Name)
		sess, err := store.Load(c.Request.Context(), id)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "load session", "error", err)
			sess = store.New()
		}
		c.Set(sessionKey, &sessionState{store: store, cookie: cookie, sess: sess})
		c.Next()
	}
}

// SessionFrom returns the request's session, or nil outside the Sessions
// middleware.
func SessionFrom(c *gin.Context) *session.Session {
	st := sessionStateOf(c)
	if st == nil {
		return nil
	}
	return st.sess
}

// SaveSession persists the session if it changed and (re)sends the cookie.
// It must run before the response body is written.
func SaveSession(c *gin.Context) error {
	st := sessionStateOf(c)
	if st == nil || !st.sess.Dirty() {
		return nil
	}
	if err := st.store.Save(c.Request.Context(), st.sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	setSessionCookie(c, st, st.sess.ID, int(st.store.TTL().Seconds()))
	return nil
}

// RenewSession discards the current session and starts a new one under a
// fresh id, carrying nothing over. Used on login and logout so a session id
// never survives a change of identity.
func RenewSession(c *gin.Context) (*session.Session, error) {
	st := sessionStateOf(c)
	if st == nil {
		return nil, errors.New("renew session: no session middleware")
	}
	if err := st.store.Destroy(c.Request.Context(), st.sess.ID); err != nil {
		return nil, fmt.Errorf("renew session: %w", err)
	}
	st.sess = st.store.New()
	forgetCurrentUser(c)
	return st.sess, nil
}

func setSessionCookie(c *gin.Context, st *sessionState, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(st.cookie.Name, value, maxAge, "/", "", st.cookie.Secure, true)
}

func sessionStateOf(c *gin.Context) *sessionState {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	return v.(*sessionState)
}
