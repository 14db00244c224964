package api

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"wingo/game"
	"wingo/models"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Register(ctx context.Context, mobile, password string) (*models.Account, error) {
	args := m.Called(ctx, mobile, password)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *mockAccounts) Authenticate(ctx context.Context, mobile, password string) (*models.Account, error) {
	args := m.Called(ctx, mobile, password)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *mockAccounts) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *mockAccounts) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	args := m.Called(ctx, limit, offset)
	accounts, _ := args.Get(0).([]*models.Account)
	return accounts, args.Error(1)
}

func (m *mockAccounts) ToggleStatus(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*models.Account)
	return account, args.Error(1)
}

func (m *mockAccounts) AddBonus(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockAccounts) LedgerHistory(ctx context.Context, id int64, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, id, limit)
	entries, _ := args.Get(0).([]*models.LedgerEntry)
	return entries, args.Error(1)
}

func (m *mockAccounts) BetHistory(ctx context.Context, id int64, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, id, limit)
	bets, _ := args.Get(0).([]*models.Bet)
	return bets, args.Error(1)
}

type mockBets struct{ mock.Mock }

func (m *mockBets) PlaceColorBet(ctx context.Context, accountID int64, stake decimal.Decimal, color models.Color) (*models.BetReceipt, error) {
	args := m.Called(ctx, accountID, stake, color)
	receipt, _ := args.Get(0).(*models.BetReceipt)
	return receipt, args.Error(1)
}

func (m *mockBets) PlaceCrashBet(ctx context.Context, accountID int64, stake decimal.Decimal) (*models.BetReceipt, error) {
	args := m.Called(ctx, accountID, stake)
	receipt, _ := args.Get(0).(*models.BetReceipt)
	return receipt, args.Error(1)
}

func (m *mockBets) CancelCrashBet(ctx context.Context, accountID int64) (*models.BetReceipt, error) {
	args := m.Called(ctx, accountID)
	receipt, _ := args.Get(0).(*models.BetReceipt)
	return receipt, args.Error(1)
}

func (m *mockBets) CashOut(ctx context.Context, accountID int64) (*models.BetReceipt, error) {
	args := m.Called(ctx, accountID)
	receipt, _ := args.Get(0).(*models.BetReceipt)
	return receipt, args.Error(1)
}

func (m *mockBets) LiveBets(ctx context.Context, gameKind models.GameKind) ([]*models.LiveBet, error) {
	args := m.Called(ctx, gameKind)
	bets, _ := args.Get(0).([]*models.LiveBet)
	return bets, args.Error(1)
}

type mockRounds struct{ mock.Mock }

func (m *mockRounds) OpenRound(ctx context.Context, gameKind models.GameKind, roundID string, phase models.Phase) error {
	return m.Called(ctx, gameKind, roundID, phase).Error(0)
}

func (m *mockRounds) AdvancePhase(ctx context.Context, roundID string, phase models.Phase) error {
	return m.Called(ctx, roundID, phase).Error(0)
}

func (m *mockRounds) RecentResults(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error) {
	args := m.Called(ctx, gameKind, limit)
	rounds, _ := args.Get(0).([]*models.Round)
	return rounds, args.Error(1)
}

type mockOutcomes struct{ mock.Mock }

func (m *mockOutcomes) NextColor(ctx context.Context, roundID string) (models.Color, error) {
	args := m.Called(ctx, roundID)
	return args.Get(0).(models.Color), args.Error(1)
}

func (m *mockOutcomes) NextCrashPoint(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockOutcomes) AddPreset(ctx context.Context, gameKind models.GameKind, value string) (*models.PresetOutcome, error) {
	args := m.Called(ctx, gameKind, value)
	preset, _ := args.Get(0).(*models.PresetOutcome)
	return preset, args.Error(1)
}

func (m *mockOutcomes) ListPresets(ctx context.Context, gameKind models.GameKind) ([]*models.PresetOutcome, error) {
	args := m.Called(ctx, gameKind)
	presets, _ := args.Get(0).([]*models.PresetOutcome)
	return presets, args.Error(1)
}

type mockWithdrawals struct{ mock.Mock }

func (m *mockWithdrawals) Request(ctx context.Context, accountID int64, amount decimal.Decimal, payoutAddress string) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, accountID, amount, payoutAddress)
	request, _ := args.Get(0).(*models.WithdrawalRequest)
	return request, args.Error(1)
}

func (m *mockWithdrawals) Approve(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	request, _ := args.Get(0).(*models.WithdrawalRequest)
	return request, args.Error(1)
}

func (m *mockWithdrawals) Reject(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	request, _ := args.Get(0).(*models.WithdrawalRequest)
	return request, args.Error(1)
}

func (m *mockWithdrawals) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx, status, limit)
	requests, _ := args.Get(0).([]*models.WithdrawalRequest)
	return requests, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) CreateOrder(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Checkout, error) {
	args := m.Called(ctx, accountID, amount)
	checkout, _ := args.Get(0).(*models.Checkout)
	return checkout, args.Error(1)
}

func (m *mockPayments) HandleWebhook(ctx context.Context, signature, timestamp string, body []byte) error {
	return m.Called(ctx, signature, timestamp, body).Error(0)
}

type stubColorState struct{ snap game.ColorSnapshot }

func (s stubColorState) Snapshot() game.ColorSnapshot { return s.snap }

type stubCrashState struct{ snap game.CrashSnapshot }

func (s stubCrashState) Snapshot() game.CrashSnapshot { return s.snap }
