package api

import (
	"net/http"

	"github.com/Domenick1991/flighthold/internal/service/reservation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the reservation engine: hold lifecycle, booking
// listings and the ledger helpers.
type BookingHandler struct {
	service reservation.ReservationUseCase
	log     *zap.Logger
}

type openHoldRequest struct {
	FlightID    string `json:"flight_id" binding:"required"`
	NoOfPersons uint64 `json:"no_of_persons"`
}

type confirmHoldRequest struct {
	FlightID    string `json:"flight_id" binding:"required"`
	NoOfPersons uint64 `json:"no_of_persons"`
	Block       uint64 `json:"block"`
	Memo        uint64 `json:"memo,string"`
}

func NewBookingHandler(service reservation.ReservationUseCase, log *zap.Logger) *BookingHandler {
	return &BookingHandler{service: service, log: log}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	bookings := router.Group("/bookings")
	bookings.GET("", h.listConfirmed)
	bookings.GET("/pending", h.listPending)

	reservations := router.Group("/reservations")
	reservations.POST("", h.open)
	reservations.POST("/confirm", h.confirm)
	reservations.POST("/:flight_id/end", h.end)

	ledger := router.Group("/ledger")
	ledger.GET("/fee", h.fee)
	ledger.GET("/address", h.selfAddress)
	ledger.GET("/address/:principal", h.addressOf)
}

func (h *BookingHandler) listConfirmed(c *gin.Context) {
	result, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) listPending(c *gin.Context) {
	result, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *BookingHandler) open(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var req openHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%v", err)
		return
	}

	booking, err := h.service.OpenHold(c.Request.Context(), principal, reservation.OpenHoldInput{
		FlightID:    req.FlightID,
		NoOfPersons: req.NoOfPersons,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) confirm(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var req confirmHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "%v", err)
		return
	}

	booking, err := h.service.ConfirmHold(c.Request.Context(), principal, reservation.ConfirmHoldInput{
		FlightID:    req.FlightID,
		NoOfPersons: req.NoOfPersons,
		Block:       req.Block,
		Memo:        req.Memo,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) end(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	msg, err := h.service.EndHold(c.Request.Context(), principal, c.Param("flight_id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	writeMessage(c, msg)
}

func (h *BookingHandler) fee(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fee_e8s": h.service.ReservationFee()})
}

func (h *BookingHandler) selfAddress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"address": h.service.CanisterAddress()})
}

func (h *BookingHandler) addressOf(c *gin.Context) {
	address, err := h.service.AddressFromPrincipal(c.Param("principal"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}
