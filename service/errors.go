package service

import "errors"

// Round and bet failures
var (
	ErrPhaseClosed  = errors.New("betting is closed for this round")
	ErrInvalidStake = errors.New("stake must be positive")
	ErrInvalidColor = errors.New("color must be red, green or violet")
	ErrDuplicateBet = errors.New("a bet is already open for this round")
	ErrNoOpenBet    = errors.New("no open bet for this round")
	ErrNotFlying    = errors.New("round is not flying")
)

// Ledger failures
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")

	// ErrAlreadyProcessed marks a provider deposit whose correlation id has already been
	// credited. Callers treat it as success.
	ErrAlreadyProcessed = errors.New("already processed")
)

// Payment provider failures
var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrUnknownOrder        = errors.New("unknown payment order")
)

// Account and withdrawal failures
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountBlocked       = errors.New("account is suspended")
	ErrMobileTaken          = errors.New("mobile number already registered")
	ErrInvalidCredentials   = errors.New("invalid mobile number or password")
	ErrWeakPassword         = errors.New("password is too short")
	ErrPayoutAddressMissing = errors.New("payout address is required")
	ErrWithdrawalNotFound   = errors.New("withdrawal request not found")
	ErrWithdrawalProcessed  = errors.New("withdrawal request already processed")
	ErrInvalidPreset        = errors.New("invalid preset outcome")
)
