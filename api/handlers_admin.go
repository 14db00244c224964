package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wingo/models"
)

type bonusRequest struct {
	Amount json.Number `json:"amount" binding:"required,money"`
}

type presetRequest struct {
	Game  string `json:"game" binding:"required,game"`
	Value string `json:"value" binding:"required"`
}

func (s *Server) listAccounts(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	accounts, err := s.deps.Accounts.ListAccounts(c.Request.Context(), queryLimit(c, 50), offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (s *Server) toggleAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	account, err := s.deps.Accounts.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) addBonus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req bonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	amount, _ := parseMoney(req.Amount.String())

	bonus, err := s.deps.Accounts.AddBonus(c.Request.Context(), id, amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "bonus": bonus})
}

func (s *Server) listWithdrawals(c *gin.Context) {
	var status *models.WithdrawalStatus
	if raw := c.Query("status"); raw != "" {
		st := models.WithdrawalStatus(raw)
		switch st {
		case models.WithdrawalStatusPending, models.WithdrawalStatusApproved, models.WithdrawalStatusRejected:
			status = &st
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown withdrawal status"})
			return
		}
	}

	requests, err := s.deps.Withdrawals.List(c.Request.Context(), status, queryLimit(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": requests})
}

func (s *Server) approveWithdrawal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := s.deps.Withdrawals.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (s *Server) rejectWithdrawal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	request, err := s.deps.Withdrawals.Reject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (s *Server) listPresets(c *gin.Context) {
	gameKind, ok := bindGame(c)
	if !ok {
		return
	}
	presets, err := s.deps.Outcomes.ListPresets(c.Request.Context(), gameKind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func (s *Server) addPreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	preset, err := s.deps.Outcomes.AddPreset(c.Request.Context(), models.GameKind(req.Game), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, preset)
}
