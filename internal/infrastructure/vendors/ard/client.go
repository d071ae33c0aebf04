package ard

import "context"

// Vendor-native shapes. Amounts are integer minor units; timestamps are
// epoch seconds, both exactly as the ARD API reports them.

// Wallet is one purse on the ARD account.
type Wallet struct {
	Name        string `json:"walletName"`
	AmountCents int    `json:"walletAmount"`
}

// PaymentsInfo is the online-payments overview; UID addresses the history
// endpoints.
type PaymentsInfo struct {
	UID     string   `json:"uid"`
	Wallets []Wallet `json:"walletData"`
}

// FinancialOperation is one account-level credit/debit line.
type FinancialOperation struct {
	CreditCents   int    `json:"credit"`
	DebitCents    int    `json:"debit"`
	OperationDate int64  `json:"operationDate"`
	OperationName string `json:"operationName"`
}

// Order is one online top-up order.
type Order struct {
	AmountCents    int   `json:"amount"`
	OrderDate      int64 `json:"orderDate"`
	OrderReference int64 `json:"orderReference"`
}

// Consumption is one canteen passage.
type Consumption struct {
	AmountCents     int    `json:"amount"`
	ConsumptionDate int64  `json:"consumptionDate"`
	Description     string `json:"consumptionDescription"`
}

// Client is the capability contract of an authenticated ARD client.
type Client interface {
	OnlinePayments(ctx context.Context) (*PaymentsInfo, error)
	FinancialHistory(ctx context.Context, uid string) ([]FinancialOperation, error)
	OrdersHistory(ctx context.Context, uid string) ([]Order, error)
	ConsumptionsHistory(ctx context.Context, uid string) ([]Consumption, error)
}

// Authenticator builds a live Client from stored credentials.
type Authenticator interface {
	Login(ctx context.Context, schoolID, username, password string) (Client, error)
}
