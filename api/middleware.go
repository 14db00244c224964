package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"wingo/auth"
)

const (
	ctxAccountID = "accountID"
	ctxClaims    = "claims"
)

// requireAuth accepts a bearer token, or a token query parameter for websocket upgrades
// where browsers cannot set headers
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, accountID, ok := s.authenticate(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
			return
		}
		c.Set(ctxClaims, claims)
		c.Set(ctxAccountID, accountID)
		c.Next()
	}
}

func (s *Server) authenticate(c *gin.Context) (*auth.Claims, int64, bool) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return nil, 0, false
		}
		token = value
	}

	claims, err := s.deps.Tokens.Parse(token)
	if err != nil {
		return nil, 0, false
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, 0, false
	}
	return claims, accountID, true
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.MustGet(ctxClaims).(*auth.Claims)
		if claims == nil || !claims.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func accountIDFrom(c *gin.Context) int64 {
	return c.MustGet(ctxAccountID).(int64)
}

// limiterStore hands out one token bucket per account
type limiterStore struct {
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLimiterStore(limit rate.Limit, burst int) *limiterStore {
	if burst <= 0 {
		burst = 1
	}
	return &limiterStore{
		limiters: make(map[int64]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *limiterStore) get(accountID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[accountID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[accountID] = limiter
	}
	return limiter
}

// rateLimit throttles bet and cashout requests per account. A zero rate disables it.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiters.limit <= 0 {
			c.Next()
			return
		}
		if !s.limiters.get(accountIDFrom(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
