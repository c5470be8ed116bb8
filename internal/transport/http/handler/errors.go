package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const (
	errInternalServer     = "Internal server error"
	errTokenGeneration    = "Token generation failed"
	errInvalidCredentials = "Invalid credentials"
	errValidationFailed   = "Validation failed"
	errNotAuthenticated   = "Not authenticated"

	msgBadCredentials = "The email or password provided is incorrect"
	msgCheckInput     = "Please check your input and try again"
	msgNeedsRefresh   = "This endpoint requires a refresh token"
	msgMalformedBody  = "Request body is malformed"
)

// respondDenial writes a 401 for a denial and a 500 for anything else.
func respondDenial(c *gin.Context, logger *slog.Logger, err error) {
	var denial *domain.AuthError
	if !errors.As(err, &denial) {
		respondInternal(c, logger, err)
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": denial.Message, "code": denial.Code})
}

func respondInternal(c *gin.Context, logger *slog.Logger, err error) {
	logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer, "code": domain.CodeInternalError})
		return
	}
	c.String(http.StatusInternalServerError, errInternalServer)
}

func respondTokenGeneration(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "code": domain.CodeTokenGenerationError})
}
