package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"wingo/models"
)

type colorBetRequest struct {
	Stake json.Number `json:"stake" binding:"required,money"`
	Color string      `json:"color" binding:"required,color"`
}

type crashBetRequest struct {
	Stake json.Number `json:"stake" binding:"required,money"`
}

type gameURI struct {
	Game string `uri:"game" binding:"required,game"`
}

func (s *Server) placeColorBet(c *gin.Context) {
	var req colorBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	stake, _ := parseMoney(req.Stake.String())

	receipt, err := s.deps.Bets.PlaceColorBet(c.Request.Context(), accountIDFrom(c), stake, models.Color(req.Color))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (s *Server) placeCrashBet(c *gin.Context) {
	var req crashBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	stake, _ := parseMoney(req.Stake.String())

	receipt, err := s.deps.Bets.PlaceCrashBet(c.Request.Context(), accountIDFrom(c), stake)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (s *Server) cancelCrashBet(c *gin.Context) {
	receipt, err := s.deps.Bets.CancelCrashBet(c.Request.Context(), accountIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) cashOut(c *gin.Context) {
	receipt, err := s.deps.Bets.CashOut(c.Request.Context(), accountIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func bindGame(c *gin.Context) (models.GameKind, bool) {
	var uri gameURI
	if err := c.ShouldBindUri(&uri); err != nil {
		respondBadRequest(c, err)
		return "", false
	}
	return models.GameKind(uri.Game), true
}

func (s *Server) gameState(c *gin.Context) {
	gameKind, ok := bindGame(c)
	if !ok {
		return
	}
	if gameKind == models.GameKindCrash {
		c.JSON(http.StatusOK, s.deps.CrashState.Snapshot())
		return
	}
	c.JSON(http.StatusOK, s.deps.ColorState.Snapshot())
}

func (s *Server) gameResults(c *gin.Context) {
	gameKind, ok := bindGame(c)
	if !ok {
		return
	}
	rounds, err := s.deps.Rounds.RecentResults(c.Request.Context(), gameKind, queryLimit(c, 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rounds})
}

func (s *Server) liveBets(c *gin.Context) {
	gameKind, ok := bindGame(c)
	if !ok {
		return
	}
	bets, err := s.deps.Bets.LiveBets(c.Request.Context(), gameKind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

func (s *Server) websocket(c *gin.Context) {
	_, accountID, ok := s.authenticate(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	// the upgrader has already written the failure response
	if err := s.deps.Hub.Serve(c.Writer, c.Request, accountID); err != nil {
		log.WithError(err).WithField("accountID", accountID).Debug("Websocket upgrade rejected")
	}
}
