package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wingo/models"
)

type credentialsRequest struct {
	Mobile   string `json:"mobile" binding:"required,min=6,max=20"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	account, err := s.deps.Accounts.Register(c.Request.Context(), req.Mobile, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusCreated, account)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	account, err := s.deps.Accounts.Authenticate(c.Request.Context(), req.Mobile, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	s.respondSession(c, http.StatusOK, account)
}

func (s *Server) respondSession(c *gin.Context, status int, account *models.Account) {
	token, err := s.deps.Tokens.Issue(account)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, sessionResponse{Token: token, Account: account})
}

func (s *Server) me(c *gin.Context) {
	account, err := s.deps.Accounts.GetAccount(c.Request.Context(), accountIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) myLedger(c *gin.Context) {
	entries, err := s.deps.Accounts.LedgerHistory(c.Request.Context(), accountIDFrom(c), queryLimit(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) myBets(c *gin.Context) {
	bets, err := s.deps.Accounts.BetHistory(c.Request.Context(), accountIDFrom(c), queryLimit(c, 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

const maxLimit = 100

// queryLimit reads ?limit, clamped to [1, maxLimit]
func queryLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
