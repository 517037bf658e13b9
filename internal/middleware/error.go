package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RetryAfterSeconds is sent with 503 responses while snapshots are not ready.
const RetryAfterSeconds = 5

// ErrorHandler turns the last error attached with c.Error into a JSON
// response. Handlers only attach errors and return.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		errType := apperrors.TypeOf(err)
		status := StatusFor(errType)

		msg := err.Error()
		if appErr, ok := apperrors.AsAppError(err); ok {
			msg = appErr.Message
		}

		switch status {
		case http.StatusServiceUnavailable:
			c.Header("Retry-After", strconv.Itoa(RetryAfterSeconds))
		case http.StatusInternalServerError:
			logger.Error("request failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			msg = "internal server error"
		}

		c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: string(errType)})
	}
}

// StatusFor maps an error type to its HTTP status code.
func StatusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeIndexUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
