package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewDashboardHandler(authUsecase authUsecaser, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "dashboard_handler"),
	}
}

type dashboardStats struct {
	TotalUsers     int `json:"total_users"`
	AccountAgeDays int `json:"account_age_days"`
}

type dashboardResponse struct {
	Message string         `json:"message"`
	User    userResponse   `json:"user"`
	Stats   dashboardStats `json:"stats"`
}

// GET /dashboard, /api/v1/dashboard, /api/dashboard
// Page users also get an access token so they can try the API.
func (h *DashboardHandler) Index(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		// Only reachable when mounted without RequireLogin.
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	d, err := h.authUsecase.Dashboard(c.Request.Context(), user)
	if err != nil {
		respondInternal(c, h.logger, err)
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, dashboardResponse{
			Message: "Dashboard accessed successfully",
			User:    toUserResponse(user),
			Stats:   dashboardStats{TotalUsers: d.TotalUsers, AccountAgeDays: d.AccountAgeDays},
		})
		return
	}

	data := gin.H{"Dashboard": d}
	tok, exp, err := h.authUsecase.AccessToken(c.Request.Context(), user)
	if err == nil {
		data["Token"] = tok
		data["TokenExpiresAt"] = exp.UTC().Format(time.RFC3339)
	}
	render(c, h.logger, http.StatusOK, "dashboard.html", data)
}
