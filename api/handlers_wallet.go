package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wingo/service"
)

type withdrawalRequest struct {
	Amount        json.Number `json:"amount" binding:"required,money"`
	PayoutAddress string      `json:"payout_address" binding:"required,max=255"`
}

type paymentOrderRequest struct {
	Amount json.Number `json:"amount" binding:"required,money"`
}

func (s *Server) requestWithdrawal(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	amount, _ := parseMoney(req.Amount.String())

	request, err := s.deps.Withdrawals.Request(c.Request.Context(), accountIDFrom(c), amount, req.PayoutAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (s *Server) createPaymentOrder(c *gin.Context) {
	var req paymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	amount, _ := parseMoney(req.Amount.String())

	checkout, err := s.deps.Payments.CreateOrder(c.Request.Context(), accountIDFrom(c), amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// paymentWebhook acknowledges every notification it could process, including replays and
// orders it does not know, so the provider stops retrying them
func (s *Server) paymentWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	err = s.deps.Payments.HandleWebhook(c.Request.Context(), c.GetHeader("signature"), c.GetHeader("timestamp"), body)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, service.ErrUnknownOrder):
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case errors.Is(err, service.ErrInvalidSignature):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		respondError(c, err)
	}
}
