package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// RequireAuth guards every route that calls the backend as a user.
	RequireAuth gin.HandlerFunc

	// Auth endpoints
	LoginHandler  gin.HandlerFunc
	LogoutHandler gin.HandlerFunc

	// Booking wizard endpoints
	StartBookingHandler   gin.HandlerFunc
	GetBookingWizard      gin.HandlerFunc
	UpdateBookingWizard   gin.HandlerFunc
	SelectDateHandler     gin.HandlerFunc
	ApplyDiscountHandler  gin.HandlerFunc
	ClearDiscountHandler  gin.HandlerFunc
	NextBookingStep       gin.HandlerFunc
	PrevBookingStep       gin.HandlerFunc
	RetryFetchHandler     gin.HandlerFunc
	SubmitBookingHandler  gin.HandlerFunc
	AbandonBookingHandler gin.HandlerFunc
	GetBookingHandler     gin.HandlerFunc

	// Registration endpoints
	StartRegistrationHandler   gin.HandlerFunc
	GetRegistrationHandler     gin.HandlerFunc
	UpdateRegistrationHandler  gin.HandlerFunc
	NextRegistrationStep       gin.HandlerFunc
	PrevRegistrationStep       gin.HandlerFunc
	SubmitRegistrationHandler  gin.HandlerFunc
	AbandonRegistrationHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle wires the service handlers into a bundle.
func NewHandlerBundle(requireAuth gin.HandlerFunc, bh *BookingHandler, rh *RegistrationHandler, ah *AuthHandler) *HandlerBundle {
	return &HandlerBundle{
		RequireAuth: requireAuth,

		LoginHandler:  ah.LoginHandler,
		LogoutHandler: ah.LogoutHandler,

		StartBookingHandler:   bh.StartHandler,
		GetBookingWizard:      bh.GetHandler,
		UpdateBookingWizard:   bh.UpdateHandler,
		SelectDateHandler:     bh.SelectDateHandler,
		ApplyDiscountHandler:  bh.ApplyDiscountHandler,
		ClearDiscountHandler:  bh.ClearDiscountHandler,
		NextBookingStep:       bh.NextHandler,
		PrevBookingStep:       bh.PrevHandler,
		RetryFetchHandler:     bh.RetryHandler,
		SubmitBookingHandler:  bh.SubmitHandler,
		AbandonBookingHandler: bh.AbandonHandler,
		GetBookingHandler:     bh.GetBookingHandler,

		StartRegistrationHandler:   rh.StartHandler,
		GetRegistrationHandler:     rh.GetHandler,
		UpdateRegistrationHandler:  rh.UpdateHandler,
		NextRegistrationStep:       rh.NextHandler,
		PrevRegistrationStep:       rh.PrevHandler,
		SubmitRegistrationHandler:  rh.SubmitHandler,
		AbandonRegistrationHandler: rh.AbandonHandler,

		HealthHandler: HealthHandler,
	}
}
