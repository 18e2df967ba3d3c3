package handlers

import (
	"context"
	"errors"
	"net/http"

	"snaplink/services/auth"
	"snaplink/services/backend"
	"snaplink/services/booking"
	"snaplink/services/registration"
	"snaplink/services/session"
	"snaplink/services/wizard"
	"snaplink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusClientClosed is logged when the caller went away mid-request.
const statusClientClosed = 499

// rejectionResponse is a 422 body. Session carries the wizard state after
// the rejected operation so the client can re-render without another call.
type rejectionResponse struct {
	utils.ErrorResponse
	Code    string `json:"code,omitempty"`
	Step    string `json:"step,omitempty"`
	Session any    `json:"session,omitempty"`
}

// respondError maps a service error onto an HTTP response. view may be nil.
func respondError(c *gin.Context, err error, view any) {
	logger := getLogger(c)

	var rejection *booking.RejectionError
	var stepErr *wizard.StepError
	var submitErr *booking.SubmissionError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &rejection):
		if errors.Is(err, booking.ErrSubmissionInProgress) {
			utils.RetryableJSONError(c, http.StatusConflict, rejection.Message, "")
			return
		}
		reject(c, rejectionResponse{
			ErrorResponse: utils.ErrorResponse{Message: rejection.Message},
			Code:          rejection.Code,
			Session:       view,
		})
	case errors.As(err, &stepErr):
		reject(c, rejectionResponse{
			ErrorResponse: utils.ErrorResponse{Message: stepErr.Err.Error()},
			Code:          "stepIncomplete",
			Step:          stepErr.Name,
			Session:       view,
		})
	case errors.As(err, &submitErr):
		if errors.Is(err, backend.ErrUnauthorized) {
			utils.JSONError(c, http.StatusUnauthorized, "Please log in again", "")
			return
		}
		if submitErr.Retryable {
			logger.Warn("Retryable submission failure", zap.Error(err))
			utils.RetryableJSONError(c, http.StatusServiceUnavailable, "Booking could not be submitted, please try again", "")
			return
		}
		reject(c, rejectionResponse{
			ErrorResponse: utils.ErrorResponse{Message: backend.MessageOf(submitErr.Err)},
			Code:          "submissionRejected",
			Session:       view,
		})
	case errors.Is(err, session.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "Session not found or expired", "")
	case errors.Is(err, session.ErrConflict):
		utils.RetryableJSONError(c, http.StatusConflict, "Session was changed by another request", "")
	case errors.Is(err, session.ErrLocked), errors.Is(err, registration.ErrInProgress):
		utils.RetryableJSONError(c, http.StatusConflict, err.Error(), "")
	case errors.Is(err, registration.ErrInvalidRole):
		utils.JSONError(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, registration.ErrNotFinalStep):
		reject(c, rejectionResponse{
			ErrorResponse: utils.ErrorResponse{Message: err.Error()},
			Code:          "notFinalStep",
			Session:       view,
		})
	case errors.Is(err, auth.ErrSessionExpired), errors.Is(err, backend.ErrUnauthorized):
		utils.JSONError(c, http.StatusUnauthorized, "Please log in again", "")
	case errors.As(err, &apiErr) && !backend.IsRetryable(err):
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			utils.JSONError(c, http.StatusUnauthorized, apiErr.Message, "")
			return
		}
		if apiErr.Status == http.StatusNotFound {
			utils.JSONError(c, http.StatusNotFound, apiErr.Message, "")
			return
		}
		reject(c, rejectionResponse{
			ErrorResponse: utils.ErrorResponse{Message: apiErr.Message},
			Code:          "rejected",
			Session:       view,
		})
	case backend.IsRetryable(err):
		logger.Warn("Backend unavailable", zap.Error(err))
		utils.RetryableJSONError(c, http.StatusServiceUnavailable, "Service temporarily unavailable, please try again", "")
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosed)
	default:
		logger.Error("Unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func reject(c *gin.Context, body rejectionResponse) {
	getLogger(c).Info("Request rejected",
		zap.String("code", body.Code), zap.String("message", body.Message), zap.String("path", c.FullPath()))
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, body)
}
