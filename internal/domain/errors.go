package domain

import "errors"

// Sentinel errors for the core decision/ledger taxonomy.
// Callers should match with errors.Is: the ledger and the runner wrap these
// with symbol and amount context.
var (
	// ErrDataUnavailable means the market data source had no usable snapshot
	// for a symbol. The affected candidate is skipped, never the whole run.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientFunds means a buy could not execute even after clamping
	// to affordable shares. The portfolio is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoPosition means a sell referenced a symbol the portfolio does not
	// hold. The recommendation is dropped.
	ErrNoPosition = errors.New("no position held")

	// ErrNoQuote means a quote lookup returned no price for a held symbol.
	ErrNoQuote = errors.New("no quote")
)
