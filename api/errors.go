package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/flighthold/internal/domain"
	"github.com/Domenick1991/flighthold/internal/ledger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PrincipalHeader carries the caller identity in textual principal form.
const PrincipalHeader = "X-Principal"

const kindInternal = "Internal"

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBooked, domain.KindNotBooked:
		return http.StatusConflict
	case domain.KindNotOwner:
		return http.StatusForbidden
	case domain.KindInvalidPayload:
		return http.StatusBadRequest
	case domain.KindPaymentFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": {"<Kind>": "<message>"}}. Errors without
// a domain kind are logged and reported as Internal.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{kindInternal: "internal error"}})
		return
	}
	c.JSON(statusOf(derr.Kind), gin.H{"error": gin.H{string(derr.Kind): derr.Msg}})
}

func writeMessage(c *gin.Context, msg domain.Message) {
	c.JSON(http.StatusOK, gin.H{string(msg.Kind): msg.Text})
}

func badRequest(c *gin.Context, format string, args ...any) {
	err := domain.NewError(domain.KindInvalidPayload, format, args...)
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{string(err.Kind): err.Msg}})
}

// caller returns the canonical principal from the request header. It writes a
// 400 and returns false when the header is missing or malformed.
func caller(c *gin.Context) (string, bool) {
	raw := c.GetHeader(PrincipalHeader)
	if raw == "" {
		badRequest(c, "%s header is required", PrincipalHeader)
		return "", false
	}
	p, err := ledger.ParsePrincipal(raw)
	if err != nil {
		badRequest(c, "%s: %v", PrincipalHeader, err)
		return "", false
	}
	return p.String(), true
}
