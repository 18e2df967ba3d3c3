package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	writeError(c, status, message, details, false)
}

// RetryableJSONError is JSONError for failures the client may simply try again.
func RetryableJSONError(c *gin.Context, status int, message string, details string) {
	writeError(c, status, message, details, true)
}

func writeError(c *gin.Context, status int, message, details string, retryable bool) {
	Logger := GetLogger()
	Logger.Warn(message,
		zap.String("details", details),
		zap.Int("status", status),
		zap.Bool("retryable", retryable),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Details: details, Retryable: retryable})
}
