package handlers

import (
	"net/http"

	"snaplink/middleware"
	"snaplink/models"
	"snaplink/services/booking"
	"snaplink/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler serves the booking wizard. Every route runs behind
// JWTAuthMiddleware, which binds the caller's backend client.
type BookingHandler struct {
	Service booking.BookingWizardService
}

func NewBookingHandler(svc booking.BookingWizardService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

type startBookingRequest struct {
	Slug string `json:"slug" binding:"required"`
}

type selectDateRequest struct {
	Date *string `json:"date"`
}

type applyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// sessionOf keeps a nil view out of the response body.
func sessionOf(v *booking.SessionView) any {
	if v == nil {
		return nil
	}
	return v
}

// caller pulls the owner and backend client set by JWTAuthMiddleware.
func caller(c *gin.Context) (string, booking.Backend, bool) {
	api, ok := middleware.BackendClient(c)
	owner := middleware.AuthSessionID(c)
	if !ok || owner == "" {
		getLogger(c).Error("Booking route reached without authentication context")
		utils.JSONError(c, http.StatusUnauthorized, "Unauthorized", "")
		return "", nil, false
	}
	return owner, api, true
}

func (h *BookingHandler) respond(c *gin.Context, status int, view *booking.SessionView, err error) {
	if err != nil {
		respondError(c, err, sessionOf(view))
		return
	}
	c.JSON(status, view)
}

// StartHandler handles POST /api/booking/wizard.
func (h *BookingHandler) StartHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	var req startBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	view, err := h.Service.Start(c.Request.Context(), api, owner, req.Slug)
	h.respond(c, http.StatusCreated, view, err)
}

// GetHandler handles GET /api/booking/wizard/:sessionID.
func (h *BookingHandler) GetHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	view, err := h.Service.Get(c.Request.Context(), api, owner, c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

// UpdateHandler handles PATCH /api/booking/wizard/:sessionID.
func (h *BookingHandler) UpdateHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	var patch models.BookingPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	view, err := h.Service.Update(c.Request.Context(), api, owner, c.Param("sessionID"), patch)
	h.respond(c, http.StatusOK, view, err)
}

// SelectDateHandler handles PUT /api/booking/wizard/:sessionID/date. A null date clears the selection.
func (h *BookingHandler) SelectDateHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	view, err := h.Service.SelectDate(c.Request.Context(), api, owner, c.Param("sessionID"), req.Date)
	h.respond(c, http.StatusOK, view, err)
}

// ApplyDiscountHandler handles PUT /api/booking/wizard/:sessionID/discount.
func (h *BookingHandler) ApplyDiscountHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	view, err := h.Service.ApplyDiscount(c.Request.Context(), api, owner, c.Param("sessionID"), req.Code)
	h.respond(c, http.StatusOK, view, err)
}

// ClearDiscountHandler handles DELETE /api/booking/wizard/:sessionID/discount.
func (h *BookingHandler) ClearDiscountHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	view, err := h.Service.ClearDiscount(c.Request.Context(), api, owner, c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

func (h *BookingHandler) NextHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	view, err := h.Service.Next(c.Request.Context(), api, owner, c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

func (h *BookingHandler) PrevHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	view, err := h.Service.Prev(c.Request.Context(), api, owner, c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

// RetryHandler handles POST /api/booking/wizard/:sessionID/retry/:resource.
func (h *BookingHandler) RetryHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	resource, err := booking.ParseResource(c.Param("resource"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	view, err := h.Service.Retry(c.Request.Context(), api, owner, c.Param("sessionID"), resource)
	h.respond(c, http.StatusOK, view, err)
}

// SubmitHandler handles POST /api/booking/wizard/:sessionID/submit. A replayed
// submission answers 200 with the booking created earlier.
func (h *BookingHandler) SubmitHandler(c *gin.Context) {
	owner, api, ok := caller(c)
	if !ok {
		return
	}
	result, err := h.Service.Submit(c.Request.Context(), api, owner, c.Param("sessionID"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// AbandonHandler handles DELETE /api/booking/wizard/:sessionID.
func (h *BookingHandler) AbandonHandler(c *gin.Context) {
	owner, _, ok := caller(c)
	if !ok {
		return
	}
	if err := h.Service.Abandon(c.Request.Context(), owner, c.Param("sessionID")); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetBookingHandler handles GET /api/booking/:code.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	_, api, ok := caller(c)
	if !ok {
		return
	}
	b, err := api.GetBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, b)
}
