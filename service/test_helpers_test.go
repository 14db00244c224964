package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"wingo/models"
)

const (
	TestAccountID    = 101
	TestColorRoundID = "20261018120000"
	TestCrashRoundID = "20261018120030"
)

// testFixture wires a mock unit of work whose transaction calls always succeed
type testFixture struct {
	Ctx     context.Context
	Repos   *MockRepositories
	UoW     *MockUnitOfWork
	Factory *MockUnitOfWorkFactory
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	repos := NewMockRepositories()
	uow := new(MockUnitOfWork)
	uow.SetRepositories(repos)
	uow.On("Begin", mock.Anything).Return(nil).Maybe()
	uow.On("Commit").Return(nil).Maybe()
	uow.On("Rollback").Return(nil).Maybe()

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow).Maybe()

	repos.Events.On("Publish", mock.Anything).Return().Maybe()

	return &testFixture{
		Ctx:     context.Background(),
		Repos:   repos,
		UoW:     uow,
		Factory: factory,
	}
}

// AssertAllMocks verifies every repository expectation was met
func (f *testFixture) AssertAllMocks(t *testing.T) {
	f.Repos.Accounts.AssertExpectations(t)
	f.Repos.Ledger.AssertExpectations(t)
	f.Repos.Rounds.AssertExpectations(t)
	f.Repos.Bets.AssertExpectations(t)
	f.Repos.Withdrawals.AssertExpectations(t)
	f.Repos.Presets.AssertExpectations(t)
	f.Repos.PaymentOrders.AssertExpectations(t)
}

// ExpectAccount makes GetByID return an active account holding balance
func (f *testFixture) ExpectAccount(id int64, balance string) *models.Account {
	account := &models.Account{
		ID:      id,
		Mobile:  "9800001234",
		Status:  models.AccountStatusActive,
		Balance: dec(balance),
	}
	f.Repos.Accounts.On("GetByID", mock.Anything, id).Return(account, nil)
	return account
}

// ExpectLedgerAppend accepts any ledger entry
func (f *testFixture) ExpectLedgerAppend() {
	f.Repos.Ledger.On("Append", mock.Anything, mock.AnythingOfType("*models.LedgerEntry")).Return(nil)
}

// ledgerEntries returns the entries passed to Append in call order
func (f *testFixture) ledgerEntries() []*models.LedgerEntry {
	var entries []*models.LedgerEntry
	for _, call := range f.Repos.Ledger.Calls {
		if call.Method == "Append" {
			entries = append(entries, call.Arguments.Get(1).(*models.LedgerEntry))
		}
	}
	return entries
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decEq(expected string) any {
	want := dec(expected)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

// fakeColorGate is an in-memory ColorGate
type fakeColorGate struct {
	roundID string
	open    bool
}

func (g *fakeColorGate) WithOpenRound(fn func(roundID string) error) (bool, error) {
	if !g.open {
		return false, nil
	}
	return true, fn(g.roundID)
}

func (g *fakeColorGate) CurrentRoundID() string { return g.roundID }

// fakeCrashGate is an in-memory CrashGate
type fakeCrashGate struct {
	roundID    string
	phase      models.Phase
	multiplier decimal.Decimal
}

func (g *fakeCrashGate) WithWaitingRound(fn func(roundID string) error) (bool, error) {
	if g.phase != models.PhaseWaiting {
		return false, nil
	}
	return true, fn(g.roundID)
}

func (g *fakeCrashGate) WithFlyingRound(fn func(roundID string, multiplier decimal.Decimal) error) (bool, error) {
	if g.phase != models.PhaseFlying {
		return false, nil
	}
	return true, fn(g.roundID, g.multiplier)
}

func (g *fakeCrashGate) CurrentRoundID() string { return g.roundID }
