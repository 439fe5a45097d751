// Package binance is the crypto venue adapter, built on the go-binance
// futures SDK.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wyckoff/internal/broker"
	"wyckoff/internal/logger"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	MaxRetries int
}

type Adapter struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) *Adapter {
	client := futures.NewClient(cfg.APIKey, cfg.APISecret)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.BaseURL = base
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return "binance" }

func (a *Adapter) Connect(ctx context.Context) error {
	return a.client.NewPingService().Do(ctx)
}

func (a *Adapter) Disconnect(context.Context) error { return nil }

func (a *Adapter) IsConnected(ctx context.Context) bool {
	return a.client.NewPingService().Do(ctx) == nil
}

func (a *Adapter) GetAccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	acct, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return broker.AccountInfo{}, fmt.Errorf("binance: account lookup failed: %w", err)
	}
	return broker.AccountInfo{
		Balance:     dec(acct.TotalWalletBalance),
		BuyingPower: dec(acct.AvailableBalance),
		Cash:        dec(acct.AvailableBalance),
		MarginUsed:  dec(acct.TotalInitialMargin),
		Currency:    "USDT",
	}, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, order broker.Order) (broker.ExecutionReport, error) {
	sym := broker.NormalizeSymbol(order.Symbol)
	side := futures.SideTypeBuy
	if strings.EqualFold(order.Side, "sell") {
		side = futures.SideTypeSell
	}
	svc := a.client.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Quantity(order.Quantity.String())
	if order.Type == "limit" && !order.Price.IsZero() {
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(order.Price.String())
	} else {
		svc = svc.Type(futures.OrderTypeMarket)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return broker.ExecutionReport{}, fmt.Errorf("binance: order failed: %w", err)
	}
	return a.toReport(order.ID, order.Quantity, sym, resp.OrderID, string(resp.Status), resp.ExecutedQuantity, resp.AvgPrice), nil
}

// CancelOrder expects the composite id produced by PlaceOrder, SYMBOL:ID,
// because the venue keys orders by symbol.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	sym, id, err := splitOrderID(orderID)
	if err != nil {
		return err
	}
	_, err = a.client.NewCancelOrderService().Symbol(sym).OrderID(id).Do(ctx)
	return err
}

func (a *Adapter) GetOpenOrders(ctx context.Context) ([]broker.ExecutionReport, error) {
	orders, err := a.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: open orders lookup failed: %w", err)
	}
	reports := make([]broker.ExecutionReport, 0, len(orders))
	for _, ord := range orders {
		qty := dec(ord.OrigQuantity)
		filled := dec(ord.ExecutedQuantity)
		reports = append(reports, broker.ExecutionReport{
			PlatformOrderID: fmt.Sprintf("%s:%d", ord.Symbol, ord.OrderID),
			Symbol:          ord.Symbol,
			Status:          mapStatus(string(ord.Status)),
			FilledQty:       filled,
			RemainingQty:    qty.Sub(filled),
			AvgFillPrice:    dec(ord.AvgPrice),
			Platform:        a.Name(),
		})
	}
	return reports, nil
}

// CloseAllPositions flattens every non-zero position with a reduce-only
// market order, continuing past individual failures.
func (a *Adapter) CloseAllPositions(ctx context.Context) ([]broker.ExecutionReport, error) {
	acct, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: account lookup failed: %w", err)
	}
	var reports []broker.ExecutionReport
	for _, pos := range acct.Positions {
		amt := dec(pos.PositionAmt)
		if amt.IsZero() {
			continue
		}
		side := futures.SideTypeSell
		if amt.IsNegative() {
			side = futures.SideTypeBuy
		}
		resp, err := a.client.NewCreateOrderService().
			Symbol(pos.Symbol).
			Side(side).
			Type(futures.OrderTypeMarket).
			Quantity(amt.Abs().String()).
			ReduceOnly(true).
			Do(ctx)
		if err != nil {
			logger.Warnf("binance: closing %s failed: %v", pos.Symbol, err)
			continue
		}
		reports = append(reports, a.toReport("", amt.Abs(), pos.Symbol, resp.OrderID, string(resp.Status), resp.ExecutedQuantity, resp.AvgPrice))
	}
	return reports, nil
}

func (a *Adapter) toReport(orderID string, qty decimal.Decimal, sym string, platformID int64, status, executed, avgPrice string) broker.ExecutionReport {
	filled := dec(executed)
	return broker.ExecutionReport{
		OrderID:         orderID,
		PlatformOrderID: fmt.Sprintf("%s:%d", sym, platformID),
		Symbol:          sym,
		Status:          mapStatus(status),
		FilledQty:       filled,
		RemainingQty:    qty.Sub(filled),
		AvgFillPrice:    dec(avgPrice),
		Platform:        a.Name(),
		Timestamp:       time.Now().UTC(),
	}
}

func mapStatus(s string) broker.OrderStatus {
	switch s {
	case "FILLED":
		return broker.StatusFilled
	case "PARTIALLY_FILLED":
		return broker.StatusPartial
	case "REJECTED", "EXPIRED":
		return broker.StatusRejected
	case "CANCELED":
		return broker.StatusCancelled
	default:
		return broker.StatusSubmitted
	}
}

func splitOrderID(composite string) (string, int64, error) {
	parts := strings.SplitN(composite, ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("binance: order id %q is not SYMBOL:ID", composite)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("binance: order id %q is not SYMBOL:ID", composite)
	}
	return parts[0], id, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
