package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"wingo/service"
)

// statusFor maps domain errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidStake),
		errors.Is(err, service.ErrInvalidColor),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPayoutAddressMissing),
		errors.Is(err, service.ErrInvalidPreset):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountBlocked):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrWithdrawalNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPhaseClosed),
		errors.Is(err, service.ErrDuplicateBet),
		errors.Is(err, service.ErrNoOpenBet),
		errors.Is(err, service.ErrNotFlying),
		errors.Is(err, service.ErrMobileTaken),
		errors.Is(err, service.ErrWithdrawalProcessed):
		return http.StatusConflict
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Internal failures are logged and hidden.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("Request failed with internal error")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func respondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
