// Package broker classifies instruments, selects the venue adapter and
// dispatches orders behind the kill switch and the risk gate.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// statusCallTimeout bounds account/status calls against a venue. A timeout
// is a normal failure outcome, never a blocking wait.
const statusCallTimeout = 10 * time.Second

// OrderStatus is the venue-reported disposition of an order.
type OrderStatus string

const (
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusFilled    OrderStatus = "FILLED"
	StatusPartial   OrderStatus = "PARTIAL"
	StatusRejected  OrderStatus = "REJECTED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Order is the execution request handed to a venue adapter.
type Order struct {
	ID         string
	SignalID   string
	CampaignID string
	Symbol     string
	Side       string // "buy" or "sell"
	Type       string // "market" or "limit"
	Quantity   decimal.Decimal
	Price      decimal.Decimal // limit price, zero for market
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

// ExecutionReport is returned for every routing attempt, rejected or filled.
type ExecutionReport struct {
	OrderID         string
	PlatformOrderID string
	Symbol          string
	Status          OrderStatus
	FilledQty       decimal.Decimal
	RemainingQty    decimal.Decimal
	AvgFillPrice    decimal.Decimal
	Platform        string // venue tag, or kill_switch / risk_gate / none
	Reason          string
	Timestamp       time.Time
}

// AccountInfo is a venue account snapshot. Failed lookups yield the zero
// value so callers always have safe defaults.
type AccountInfo struct {
	Balance     decimal.Decimal
	BuyingPower decimal.Decimal
	Cash        decimal.Decimal
	MarginUsed  decimal.Decimal
	Currency    string
}

// Adapter is the interface to one execution venue. Every method may fail;
// callers handle failure without crashing the router.
type Adapter interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
	PlaceOrder(ctx context.Context, order Order) (ExecutionReport, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOpenOrders(ctx context.Context) ([]ExecutionReport, error)
	CloseAllPositions(ctx context.Context) ([]ExecutionReport, error)
}
