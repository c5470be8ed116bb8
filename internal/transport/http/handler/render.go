package handler

import (
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/session"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const dashboardPath = "/dashboard"

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// tokenResponse is the body of every endpoint that hands out a pair.
type tokenResponse struct {
	Message      string        `json:"message"`
	User         *userResponse `json:"user,omitempty"`
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    string        `json:"expires_at"`
}

func newTokenResponse(msg string, u *domain.User, pair *domain.TokenPair) tokenResponse {
	resp := tokenResponse{
		Message:      msg,
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if u != nil {
		ur := toUserResponse(u)
		resp.User = &ur
	}
	return resp
}

// render writes an HTML page. Pending session flash is consumed and merged
// with any flash passed in data["Flash"], which is shown on this render only.
func render(c *gin.Context, logger *slog.Logger, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	flash := map[string]string{}
	if sess := middleware.SessionFrom(c); sess != nil {
		maps.Copy(flash, sess.TakeFlash())
	}
	if now, ok := data["Flash"].(map[string]string); ok {
		maps.Copy(flash, now)
	}
	data["Flash"] = flash
	data["CurrentUser"] = middleware.CurrentUser(c)

	if err := middleware.SaveSession(c); err != nil {
		logger.ErrorContext(c.Request.Context(), "save session", "error", err)
	}
	c.HTML(status, name, data)
}

// signIn starts a fresh session for user and redirects to the dashboard.
func signIn(c *gin.Context, logger *slog.Logger, user *domain.User, notice string) {
	sess, err := middleware.RenewSession(c)
	if err != nil {
		respondInternal(c, logger, err)
		return
	}
	sess.SetUserID(user.ID)
	sess.SetFlash(session.FlashNotice, notice)
	if err := middleware.SaveSession(c); err != nil {
		respondInternal(c, logger, err)
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func alertNow(msg string) map[string]string {
	return map[string]string{session.FlashAlert: msg}
}
