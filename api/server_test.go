package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wingo/auth"
	"wingo/broadcast"
	"wingo/game"
	"wingo/models"
	"wingo/service"
)

const testAccountID int64 = 101

type testServer struct {
	t           *testing.T
	server      *Server
	tokens      *auth.TokenIssuer
	hub         *broadcast.Hub
	accounts    *mockAccounts
	bets        *mockBets
	rounds      *mockRounds
	outcomes    *mockOutcomes
	withdrawals *mockWithdrawals
	payments    *mockPayments
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		t:           t,
		tokens:      auth.NewTokenIssuer("test-secret", time.Hour),
		hub:         broadcast.NewHub(broadcast.Config{}),
		accounts:    &mockAccounts{},
		bets:        &mockBets{},
		rounds:      &mockRounds{},
		outcomes:    &mockOutcomes{},
		withdrawals: &mockWithdrawals{},
		payments:    &mockPayments{},
	}
	ts.server = NewServer(Deps{
		Accounts:    ts.accounts,
		Bets:        ts.bets,
		Rounds:      ts.rounds,
		Outcomes:    ts.outcomes,
		Withdrawals: ts.withdrawals,
		Payments:    ts.payments,
		Tokens:      ts.tokens,
		Hub:         ts.hub,
		ColorState: stubColorState{snap: game.ColorSnapshot{
			RoundID: "color-1", Phase: models.PhaseBetting, Remaining: 12,
		}},
		CrashState: stubCrashState{snap: game.CrashSnapshot{
			RoundID: "crash-1", Phase: models.PhaseFlying, Tick: 14, Multiplier: decimal.RequireFromString("1.37"),
		}},
	}, opts)

	t.Cleanup(func() {
		ts.hub.Close()
		mock.AssertExpectationsForObjects(t, ts.accounts, ts.bets, ts.rounds, ts.outcomes, ts.withdrawals, ts.payments)
	})
	return ts
}

func defaultOptions() Options {
	return Options{BetRatePerSec: 100, BetRateBurst: 100}
}

func (ts *testServer) token(accountID int64, admin bool) string {
	token, err := ts.tokens.Issue(&models.Account{ID: accountID, IsAdmin: admin})
	require.NoError(ts.t, err)
	return token
}

func (ts *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decEq(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	account := &models.Account{ID: 7, Mobile: "9876543210", Status: models.AccountStatusActive}
	ts.accounts.On("Register", mock.Anything, "9876543210", "hunter22").Return(account, nil).Once()

	rec := ts.do(http.MethodPost, "/api/auth/register", gin.H{"mobile": "9876543210", "password": "hunter22"}, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	claims, err := ts.tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Nil(t, body["account"].(map[string]any)["password_hash"])
}

func TestRegister_Rejections(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	ts.accounts.On("Register", mock.Anything, "9876543210", "short").
		Return(nil, fmt.Errorf("%w: at least 8 characters required", service.ErrWeakPassword)).Once()
	ts.accounts.On("Register", mock.Anything, "1234567890", "hunter22").
		Return(nil, service.ErrMobileTaken).Once()

	rec := ts.do(http.MethodPost, "/api/auth/register", gin.H{"mobile": "9876543210", "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "password is too short")

	rec = ts.do(http.MethodPost, "/api/auth/register", gin.H{"mobile": "1234567890", "password": "hunter22"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/register", gin.H{"mobile": "12"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"blocked", service.ErrAccountBlocked, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, defaultOptions())
			var account *models.Account
			if tt.err == nil {
				account = &models.Account{ID: testAccountID}
			}
			ts.accounts.On("Authenticate", mock.Anything, "9876543210", "hunter22").Return(account, tt.err).Once()

			rec := ts.do(http.MethodPost, "/api/auth/login", gin.H{"mobile": "9876543210", "password": "hunter22"}, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t, defaultOptions())

	rec := ts.do(http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Basic "+ts.token(testAccountID, false))
	rec = httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	ts.accounts.On("GetAccount", mock.Anything, testAccountID).
		Return(&models.Account{ID: testAccountID, Balance: decimal.RequireFromString("150.00")}, nil).Once()
	ts.accounts.On("LedgerHistory", mock.Anything, testAccountID, 10).Return([]*models.LedgerEntry{}, nil).Once()
	ts.accounts.On("BetHistory", mock.Anything, testAccountID, maxLimit).Return([]*models.Bet{}, nil).Once()

	rec := ts.do(http.MethodGet, "/api/me", nil, ts.token(testAccountID, false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150", decodeBody(t, rec)["balance"])

	rec = ts.do(http.MethodGet, "/api/me/ledger?limit=10", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/me/bets?limit=5000", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceColorBet(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	color := models.ColorRed
	receipt := &models.BetReceipt{
		Bet:        &models.Bet{ID: 1, RoundID: "color-1", Stake: decimal.NewFromInt(50), Color: &color, Status: models.BetStatusOpen},
		NewBalance: decimal.NewFromInt(50),
	}
	ts.bets.On("PlaceColorBet", mock.Anything, testAccountID, decEq("50"), models.ColorRed).Return(receipt, nil).Once()

	rec := ts.do(http.MethodPost, "/api/color/bets", `{"stake": 50, "color": "red"}`, ts.token(testAccountID, false))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "50", decodeBody(t, rec)["new_balance"])
}

func TestPlaceColorBet_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown color", `{"stake": 10, "color": "blue"}`},
		{"zero stake", `{"stake": 0, "color": "red"}`},
		{"negative stake", `{"stake": -5, "color": "red"}`},
		{"sub-cent stake", `{"stake": 1.005, "color": "red"}`},
		{"missing stake", `{"color": "green"}`},
		{"malformed", `{"stake":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, defaultOptions())
			rec := ts.do(http.MethodPost, "/api/color/bets", tt.body, ts.token(testAccountID, false))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			ts.bets.AssertNotCalled(t, "PlaceColorBet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPlaceCrashBet_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"phase closed", service.ErrPhaseClosed, http.StatusConflict, service.ErrPhaseClosed.Error()},
		{"duplicate", service.ErrDuplicateBet, http.StatusConflict, service.ErrDuplicateBet.Error()},
		{"insufficient funds", service.ErrInsufficientFunds, http.StatusUnprocessableEntity, service.ErrInsufficientFunds.Error()},
		{"blocked", service.ErrAccountBlocked, http.StatusForbidden, service.ErrAccountBlocked.Error()},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, defaultOptions())
			ts.bets.On("PlaceCrashBet", mock.Anything, testAccountID, decEq("20.50")).Return(nil, tt.err).Once()

			rec := ts.do(http.MethodPost, "/api/crash/bets", `{"stake": "20.50"}`, ts.token(testAccountID, false))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}
}

func TestCrashBetLifecycle(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	receipt := &models.BetReceipt{Bet: &models.Bet{ID: 2}, NewBalance: decimal.NewFromInt(130)}
	ts.bets.On("CancelCrashBet", mock.Anything, testAccountID).Return(nil, service.ErrNoOpenBet).Once()
	ts.bets.On("CashOut", mock.Anything, testAccountID).Return(receipt, nil).Once()

	rec := ts.do(http.MethodDelete, "/api/crash/bets", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/crash/cashout", nil, ts.token(testAccountID, false))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "130", decodeBody(t, rec)["new_balance"])
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{BetRatePerSec: 0.001, BetRateBurst: 1})
	ts.bets.On("CashOut", mock.Anything, testAccountID).Return(nil, service.ErrNotFlying).Once()
	ts.bets.On("CashOut", mock.Anything, int64(202)).Return(nil, service.ErrNotFlying).Once()

	rec := ts.do(http.MethodPost, "/api/crash/cashout", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/crash/cashout", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// buckets are per account
	rec = ts.do(http.MethodPost, "/api/crash/cashout", nil, ts.token(202, false))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGameState(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	token := ts.token(testAccountID, false)

	rec := ts.do(http.MethodGet, "/api/games/color/state", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "color-1", body["round_id"])
	assert.Equal(t, float64(12), body["timer"])

	rec = ts.do(http.MethodGet, "/api/games/crash/state", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "flying", body["state"])
	assert.Equal(t, "1.37", body["multiplier"])

	rec = ts.do(http.MethodGet, "/api/games/dice/state", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGameResultsAndLiveBets(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	result := "2.35"
	ts.rounds.On("RecentResults", mock.Anything, models.GameKindCrash, 5).
		Return([]*models.Round{{ID: "crash-0", GameKind: models.GameKindCrash, Result: &result}}, nil).Once()
	ts.bets.On("LiveBets", mock.Anything, models.GameKindColor).Return([]*models.LiveBet{}, nil).Once()

	rec := ts.do(http.MethodGet, "/api/games/crash/results?limit=5", nil, ts.token(testAccountID, false))
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "2.35", results[0].(map[string]any)["result"])

	rec = ts.do(http.MethodGet, "/api/games/color/bets", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWallet(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	ts.withdrawals.On("Request", mock.Anything, testAccountID, decEq("40"), "upi://player@bank").
		Return(&models.WithdrawalRequest{ID: 12, Status: models.WithdrawalStatusPending}, nil).Once()
	ts.payments.On("CreateOrder", mock.Anything, testAccountID, decEq("500")).
		Return(nil, fmt.Errorf("%w: timeout", service.ErrProviderUnavailable)).Once()

	rec := ts.do(http.MethodPost, "/api/withdrawals", gin.H{"amount": 40, "payout_address": "upi://player@bank"}, ts.token(testAccountID, false))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pending", decodeBody(t, rec)["status"])

	rec = ts.do(http.MethodPost, "/api/payments/orders", gin.H{"amount": 500}, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPaymentWebhook(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"credited", nil, http.StatusOK},
		{"unknown order", service.ErrUnknownOrder, http.StatusOK},
		{"bad signature", service.ErrInvalidSignature, http.StatusUnauthorized},
		{"storage failure", errors.New("deadlock detected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, defaultOptions())
			body := `{"data":{"order":{"order_id":"order_1"}}}`
			ts.payments.On("HandleWebhook", mock.Anything, "sig==", "1760788800", []byte(body)).Return(tt.err).Once()

			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
			req.Header.Set("signature", "sig==")
			req.Header.Set("timestamp", "1760788800")
			rec := httptest.NewRecorder()
			ts.server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	admin := ts.token(1, true)

	rec := ts.do(http.MethodPost, "/api/admin/withdrawals/12/approve", nil, ts.token(testAccountID, false))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ts.withdrawals.On("Approve", mock.Anything, int64(12)).
		Return(&models.WithdrawalRequest{ID: 12, Status: models.WithdrawalStatusApproved}, nil).Once()
	rec = ts.do(http.MethodPost, "/api/admin/withdrawals/12/approve", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decodeBody(t, rec)["status"])

	ts.withdrawals.On("Reject", mock.Anything, int64(13)).Return(nil, service.ErrWithdrawalProcessed).Once()
	rec = ts.do(http.MethodPost, "/api/admin/withdrawals/13/reject", nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/withdrawals/abc/reject", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	pending := models.WithdrawalStatusPending
	ts.withdrawals.On("List", mock.Anything, &pending, 50).Return([]*models.WithdrawalRequest{}, nil).Once()
	rec = ts.do(http.MethodGet, "/api/admin/withdrawals?status=pending", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/admin/withdrawals?status=lost", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.accounts.On("ToggleStatus", mock.Anything, testAccountID).
		Return(&models.Account{ID: testAccountID, Status: models.AccountStatusBlocked}, nil).Once()
	rec = ts.do(http.MethodPost, "/api/admin/accounts/101/toggle", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "blocked", decodeBody(t, rec)["status"])

	ts.accounts.On("AddBonus", mock.Anything, testAccountID, decEq("25")).Return(decimal.NewFromInt(25), nil).Once()
	rec = ts.do(http.MethodPost, "/api/admin/accounts/101/bonus", gin.H{"amount": 25}, admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.accounts.On("ListAccounts", mock.Anything, 50, 20).Return([]*models.Account{}, nil).Once()
	rec = ts.do(http.MethodGet, "/api/admin/accounts?offset=20", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminPresets(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	admin := ts.token(1, true)

	ts.outcomes.On("AddPreset", mock.Anything, models.GameKindCrash, "0.50").Return(nil, service.ErrInvalidPreset).Once()
	ts.outcomes.On("AddPreset", mock.Anything, models.GameKindColor, "violet").
		Return(&models.PresetOutcome{ID: 1, GameKind: models.GameKindColor, Value: "violet"}, nil).Once()
	ts.outcomes.On("ListPresets", mock.Anything, models.GameKindColor).Return([]*models.PresetOutcome{}, nil).Once()

	rec := ts.do(http.MethodPost, "/api/admin/presets", gin.H{"game": "crash", "value": "0.50"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/presets", gin.H{"game": "color", "value": "violet"}, admin)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/api/admin/presets", gin.H{"game": "roulette", "value": "red"}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/admin/presets/color", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebsocket(t *testing.T) {
	ts := newTestServer(t, defaultOptions())
	server := httptest.NewServer(ts.server.Handler())
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+ts.token(testAccountID, false), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return ts.hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	ts.hub.SendToAccount(testAccountID, service.EventPersonalUpdate, gin.H{"kind": "win"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg broadcast.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, service.EventPersonalUpdate, msg.Type)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrInvalidStake, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", service.ErrInvalidAmount), http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrAccountNotFound, http.StatusNotFound},
		{service.ErrWithdrawalNotFound, http.StatusNotFound},
		{service.ErrNotFlying, http.StatusConflict},
		{service.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}
