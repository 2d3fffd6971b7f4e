package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quizmaster/profile-kit/internal/handler"
	apperrors "github.com/quizmaster/profile-kit/pkg/errors"
)

// ErrorHandler renders the last error attached with c.Error. AppErrors keep
// their status and message; anything else becomes a 500.
func ErrorHandler(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			logger.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		if appErr, ok := apperrors.As(c.Errors.Last().Err); ok {
			status = appErr.HTTPStatus()
			if status < 500 {
				message = appErr.Message
			}
		}

		c.JSON(status, handler.NewErrorResponse(message).WithRequestID(requestID))
	}
}
