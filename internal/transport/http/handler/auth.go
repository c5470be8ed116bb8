package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/session"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/ErlanBelekov/dual-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handlers need.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	IssueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error)
	AccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
	Refresh(ctx context.Context, raw string) (*domain.TokenPair, error)
	Dashboard(ctx context.Context, user *domain.User) (*usecase.Dashboard, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

type SessionHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewSessionHandler(authUsecase authUsecaser, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "session_handler"),
	}
}

type loginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// GET / and GET /login
func (h *SessionHandler) New(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, dashboardPath)
		return
	}
	render(c, h.logger, http.StatusOK, "login.html", nil)
}

// POST /login, /api/v1/auth/login, /api/login
// An unreadable body is treated like empty credentials.
func (h *SessionHandler) Create(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.DebugContext(c.Request.Context(), "bind login", "error", err)
	}

	user, err := h.authUsecase.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if domain.CodeOf(err) != domain.CodeInvalidCredentials {
			respondInternal(c, h.logger, err)
			return
		}
		if middleware.WantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   errInvalidCredentials,
				"message": msgBadCredentials,
				"code":    domain.CodeInvalidCredentials,
			})
			return
		}
		render(c, h.logger, http.StatusUnprocessableEntity, "login.html", gin.H{
			"Email": req.Email,
			"Flash": alertNow("Invalid email or password"),
		})
		return
	}

	if !middleware.WantsJSON(c) {
		signIn(c, h.logger, user, fmt.Sprintf("Welcome back, %s!", user.Email))
		return
	}

	pair, err := h.authUsecase.IssueTokens(c.Request.Context(), user)
	if err != nil {
		respondTokenGeneration(c, errTokenGeneration)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse("Login successful", user, pair))
}

// DELETE|POST /logout, /api/v1/auth/logout, /api/logout
// Tokens are stateless, so API logout is only an acknowledgement.
func (h *SessionHandler) Destroy(c *gin.Context) {
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Logout successful",
			"note":    "Please discard your token on the client side",
		})
		return
	}

	sess, err := middleware.RenewSession(c)
	if err != nil {
		respondInternal(c, h.logger, err)
		return
	}
	sess.SetFlash(session.FlashNotice, "You have been logged out.")
	if err := middleware.SaveSession(c); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "save session", "error", err)
	}
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

// POST /api/v1/auth/refresh, /api/refresh
func (h *SessionHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.DebugContext(c.Request.Context(), "bind refresh", "error", err)
	}

	pair, err := h.authUsecase.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		var denial *domain.AuthError
		switch {
		case !errors.As(err, &denial):
			respondInternal(c, h.logger, err)
		case denial.Code == domain.CodeMissingRefreshToken:
			c.JSON(http.StatusBadRequest, gin.H{"error": denial.Message, "code": denial.Code})
		case denial.Code == domain.CodeTokenGenerationError:
			respondTokenGeneration(c, errTokenGeneration)
		case denial.Code == domain.CodeInvalidTokenType:
			c.JSON(http.StatusUnauthorized, gin.H{"error": denial.Message, "message": msgNeedsRefresh, "code": denial.Code})
		default:
			respondDenial(c, h.logger, err)
		}
		return
	}

	c.JSON(http.StatusOK, newTokenResponse("Token refreshed successfully", nil, pair))
}
