package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/ErlanBelekov/dual-auth/internal/usecase"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewUserHandler(authUsecase authUsecaser, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "user_handler"),
	}
}

type userFields struct {
	Email                string `json:"email"                 form:"email"`
	Password             string `json:"password"              form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

// registerRequest accepts the fields at the top level or nested under "user".
type registerRequest struct {
	userFields
	User *userFields `json:"user" form:"-"`
}

func (r registerRequest) fields() userFields {
	if r.User != nil {
		return *r.User
	}
	return r.userFields
}

type listedUser struct {
	userResponse
	IsCurrentUser bool `json:"is_current_user"`
}

type listUsersResponse struct {
	Users      []listedUser `json:"users"`
	TotalCount int          `json:"total_count"`
}

// GET /signup
func (h *UserHandler) New(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, dashboardPath)
		return
	}
	render(c, h.logger, http.StatusOK, "signup.html", nil)
}

// POST /signup, /api/v1/auth/register, /api/register
func (h *UserHandler) Create(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		h.validationFailed(c, userFields{}, []string{msgMalformedBody})
		return
	}
	f := req.fields()

	user, err := h.authUsecase.Register(c.Request.Context(), usecase.RegisterInput{
		Email:                f.Email,
		Password:             f.Password,
		PasswordConfirmation: f.PasswordConfirmation,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.validationFailed(c, f, verr.Messages)
			return
		}
		respondInternal(c, h.logger, err)
		return
	}

	if !middleware.WantsJSON(c) {
		signIn(c, h.logger, user, fmt.Sprintf("Account created successfully! Welcome, %s!", user.Email))
		return
	}

	pair, err := h.authUsecase.IssueTokens(c.Request.Context(), user)
	if err != nil {
		respondTokenGeneration(c, "Account created but token generation failed")
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse("Account created successfully", user, pair))
}

func (h *UserHandler) validationFailed(c *gin.Context, f userFields, msgs []string) {
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   errValidationFailed,
			"message": msgCheckInput,
			"errors":  msgs,
			"code":    domain.CodeValidationError,
		})
		return
	}
	render(c, h.logger, http.StatusUnprocessableEntity, "signup.html", gin.H{
		"Email":  f.Email,
		"Errors": msgs,
		"Flash":  alertNow("There were errors creating your account."),
	})
}

// GET /users, /api/v1/users, /api/users
func (h *UserHandler) Index(c *gin.Context) {
	users, err := h.authUsecase.ListUsers(c.Request.Context())
	if err != nil {
		respondInternal(c, h.logger, err)
		return
	}
	current := middleware.CurrentUser(c)

	if !middleware.WantsJSON(c) {
		render(c, h.logger, http.StatusOK, "users.html", gin.H{"Users": users})
		return
	}

	resp := listUsersResponse{Users: make([]listedUser, 0, len(users)), TotalCount: len(users)}
	for _, u := range users {
		resp.Users = append(resp.Users, listedUser{
			userResponse:  toUserResponse(u),
			IsCurrentUser: current != nil && current.ID == u.ID,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/v1/users/me, /api/me
// Not gated: an anonymous caller gets not_authenticated rather than a
// token-specific code.
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errNotAuthenticated, "code": domain.CodeNotAuthenticated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
