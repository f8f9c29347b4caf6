package httpHandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"weather-server/entities"
	"weather-server/usecases"
)

const (
	msgNotFound     = "A database result was required but none was found."
	msgUnhandled    = "An unhandled exception occurred."
	msgUnauthorized = "Authorization required"
)

// respondError maps a domain error onto a status code and an
// {"error": "..."} body. Unknown errors are logged and hidden.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, entities.ErrLatitudeOutOfRange),
		errors.Is(err, entities.ErrLongitudeOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad request: " + err.Error()})
	case errors.Is(err, entities.ErrInvalidField),
		errors.Is(err, usecases.ErrMissingLocation),
		errors.Is(err, usecases.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	case errors.Is(err, entities.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
	default:
		logger.ErrorContext(c.Request.Context(), "unhandled error",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgUnhandled})
	}
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
}
