package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/galtspace/geo-explorer/internal/api/shared/errors"
	"github.com/galtspace/geo-explorer/internal/logger"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error *apierrors.APIError `json:"error"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, apiErr *apierrors.APIError) {
	c.JSON(apiErr.Status(), errorResponse{Error: apiErr})
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, apierrors.NewValidationError(details))
}

// respondExecutorError sends the API error carried by err. Server side failures are logged.
func respondExecutorError(c *gin.Context, err error, fields ...zap.Field) {
	apiErr := apierrors.As(err)
	if apiErr.Status() >= 500 {
		logger.ErrorCtx(c.Request.Context(), err, append(fields, zap.String("path", c.Request.URL.Path))...)
	}
	respondWithError(c, apiErr)
}
