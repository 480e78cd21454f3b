package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/service/flights"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FlightHandler struct {
	service flights.FlightUseCase
	log     *zap.Logger
}

func NewFlightHandler(service flights.FlightUseCase, log *zap.Logger) *FlightHandler {
	return &FlightHandler{service: service, log: log}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("", h.add)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

// list serves the whole registry, or a filtered view when max_price or the
// from/to pair is given.
func (h *FlightHandler) list(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		result []domain.Flight
		err    error
	)
	switch {
	case c.Query("max_price") != "":
		maxPrice, perr := strconv.ParseUint(c.Query("max_price"), 10, 64)
		if perr != nil {
			badRequest(c, "invalid max_price %q", c.Query("max_price"))
			return
		}
		result, err = h.service.FilterByMaxPrice(ctx, maxPrice)
	case c.Query("from") != "" || c.Query("to") != "":
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" {
			badRequest(c, "both from and to are required")
			return
		}
		result, err = h.service.FilterByRoute(ctx, from, to)
	default:
		result, err = h.service.List(ctx)
	}
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) get(c *gin.Context) {
	flight, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) add(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var payload domain.FlightPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "%v", err)
		return
	}

	flight, err := h.service.Add(c.Request.Context(), principal, payload)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	var payload domain.FlightPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "%v", err)
		return
	}

	flight, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), payload)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) delete(c *gin.Context) {
	principal, ok := caller(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
