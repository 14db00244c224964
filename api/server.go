package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wingo/auth"
	"wingo/broadcast"
	"wingo/game"
	"wingo/service"
)

// ColorStateReader exposes the current color round to handlers
type ColorStateReader interface {
	Snapshot() game.ColorSnapshot
}

// CrashStateReader exposes the current crash round to handlers
type CrashStateReader interface {
	Snapshot() game.CrashSnapshot
}

// Deps are the collaborators the HTTP layer dispatches to
type Deps struct {
	Accounts    service.AccountService
	Bets        service.BetService
	Rounds      service.RoundService
	Outcomes    service.OutcomeService
	Withdrawals service.WithdrawalService
	Payments    service.PaymentService
	Tokens      *auth.TokenIssuer
	Hub         *broadcast.Hub
	ColorState  ColorStateReader
	CrashState  CrashStateReader
}

// Options tune the HTTP layer
type Options struct {
	BetRatePerSec float64
	BetRateBurst  int
	Release       bool
}

// Server is the HTTP and websocket front end
type Server struct {
	deps     Deps
	router   *gin.Engine
	limiters *limiterStore
}

// NewServer builds the router with every route registered
func NewServer(deps Deps, opts Options) *Server {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	s := &Server{
		deps:     deps,
		router:   gin.New(),
		limiters: newLimiterStore(rate.Limit(opts.BetRatePerSec), opts.BetRateBurst),
	}
	s.router.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

// Handler returns the root http handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/payments/webhook", s.paymentWebhook)

	authed := api.Group("", s.requireAuth())
	authed.GET("/me", s.me)
	authed.GET("/me/ledger", s.myLedger)
	authed.GET("/me/bets", s.myBets)
	authed.GET("/games/:game/state", s.gameState)
	authed.GET("/games/:game/results", s.gameResults)
	authed.GET("/games/:game/bets", s.liveBets)
	authed.POST("/withdrawals", s.requestWithdrawal)
	authed.POST("/payments/orders", s.createPaymentOrder)

	betting := authed.Group("", s.rateLimit())
	betting.POST("/color/bets", s.placeColorBet)
	betting.POST("/crash/bets", s.placeCrashBet)
	betting.DELETE("/crash/bets", s.cancelCrashBet)
	betting.POST("/crash/cashout", s.cashOut)

	admin := authed.Group("/admin", requireAdmin())
	admin.GET("/accounts", s.listAccounts)
	admin.POST("/accounts/:id/toggle", s.toggleAccount)
	admin.POST("/accounts/:id/bonus", s.addBonus)
	admin.GET("/withdrawals", s.listWithdrawals)
	admin.POST("/withdrawals/:id/approve", s.approveWithdrawal)
	admin.POST("/withdrawals/:id/reject", s.rejectWithdrawal)
	admin.GET("/presets/:game", s.listPresets)
	admin.POST("/presets", s.addPreset)

	r.GET("/ws", s.websocket)
}

// Serve listens on addr until ctx is canceled, then drains in-flight requests
func (s *Server) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
	}

	log.Info("HTTP server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if accountID, ok := c.Get(ctxAccountID); ok {
			fields["accountID"] = accountID
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.WithFields(fields).Error("Request failed")
		default:
			log.WithFields(fields).Debug("Request served")
		}
	}
}
