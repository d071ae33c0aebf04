package izly

import (
	"context"
	"time"
)

// OperationKind selects which ledger the operations endpoint returns.
type OperationKind int

const (
	OperationPayment OperationKind = iota
	OperationTopUp
)

// BalanceInfo is the Izly purse snapshot. Values are already decimal euros;
// CashValue is the cash sub-purse and may be zero.
type BalanceInfo struct {
	Value     float64 `json:"value"`
	CashValue float64 `json:"cashValue"`
}

// Operation is one ledger entry.
type Operation struct {
	Amount   float64   `json:"amount"`
	IsCredit bool      `json:"isCredit"`
	Date     time.Time `json:"date"`
}

// Session is the capability contract of a refreshed Izly identification.
type Session interface {
	Balance(ctx context.Context) (*BalanceInfo, error)
	Operations(ctx context.Context, kind OperationKind, limit int) ([]Operation, error)
	// QRPay mints a short-lived payment token renderable as a QR code.
	// An empty token means the feature is unavailable for this account.
	QRPay(ctx context.Context) (string, error)
}

// Authenticator refreshes a stored identification with its activation secret.
type Authenticator interface {
	Refresh(ctx context.Context, identification, secret string) (Session, error)
}
