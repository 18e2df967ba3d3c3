package handlers

import (
	"net/http"

	"snaplink/models"
	"snaplink/services/registration"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegistrationHandler struct {
	Service registration.RegistrationService
}

func NewRegistrationHandler(svc registration.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{Service: svc}
}

type startRegistrationRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

func viewOf(v *registration.View) any {
	if v == nil {
		return nil
	}
	return v
}

func (h *RegistrationHandler) respond(c *gin.Context, status int, view *registration.View, err error) {
	if err != nil {
		respondError(c, err, viewOf(view))
		return
	}
	c.JSON(status, view)
}

// StartHandler handles POST /api/registration.
func (h *RegistrationHandler) StartHandler(c *gin.Context) {
	var req startRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	view, err := h.Service.Start(c.Request.Context(), req.Role)
	h.respond(c, http.StatusCreated, view, err)
}

func (h *RegistrationHandler) GetHandler(c *gin.Context) {
	view, err := h.Service.Get(c.Request.Context(), c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

func (h *RegistrationHandler) UpdateHandler(c *gin.Context) {
	var patch models.RegistrationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	view, err := h.Service.Update(c.Request.Context(), c.Param("sessionID"), patch)
	h.respond(c, http.StatusOK, view, err)
}

func (h *RegistrationHandler) NextHandler(c *gin.Context) {
	view, err := h.Service.Next(c.Request.Context(), c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

func (h *RegistrationHandler) PrevHandler(c *gin.Context) {
	view, err := h.Service.Prev(c.Request.Context(), c.Param("sessionID"))
	h.respond(c, http.StatusOK, view, err)
}

// SubmitHandler handles POST /api/registration/:sessionID/submit.
func (h *RegistrationHandler) SubmitHandler(c *gin.Context) {
	user, err := h.Service.Submit(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	getLogger(c).Info("Registration completed", zap.String("userID", user.UserID))
	c.JSON(http.StatusCreated, user)
}

func (h *RegistrationHandler) AbandonHandler(c *gin.Context) {
	if err := h.Service.Abandon(c.Request.Context(), c.Param("sessionID")); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
