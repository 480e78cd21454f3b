package api

import (
	"net/http"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/service/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	service users.UserUseCase
	log     *zap.Logger
}

type bookedFlightRequest struct {
	FlightID string `json:"flight_id" binding:"required"`
}

func NewUserHandler(service users.UserUseCase, log *zap.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

func (h *UserHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.add)
	router.GET("/:id", h.get)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
	router.POST("/:id/booked_flights", h.addBookedFlight)
}

func (h *UserHandler) list(c *gin.Context) {
	result, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserHandler) get(c *gin.Context) {
	user, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) add(c *gin.Context) {
	var payload domain.UserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "%v", err)
		return
	}

	user, err := h.service.Add(c.Request.Context(), payload)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) update(c *gin.Context) {
	var payload domain.UpdateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "%v", err)
		return
	}

	user, err := h.service.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) addBookedFlight(c *gin.Context) {
	var req bookedFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%v", err)
		return
	}

	user, err := h.service.AddBookedFlight(c.Request.Context(), c.Param("id"), req.FlightID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
