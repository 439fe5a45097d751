// Package alpaca is the stock venue adapter, speaking the Alpaca trading
// REST API.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wyckoff/internal/broker"

	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL   string
	KeyID     string
	SecretKey string
}

type Adapter struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://paper-api.alpaca.markets"
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Name() string { return "alpaca" }

func (a *Adapter) Connect(ctx context.Context) error {
	_, err := a.GetAccountInfo(ctx)
	return err
}

func (a *Adapter) Disconnect(context.Context) error { return nil }

func (a *Adapter) IsConnected(ctx context.Context) bool {
	_, err := a.GetAccountInfo(ctx)
	return err == nil
}

type accountPayload struct {
	Equity           string `json:"equity"`
	BuyingPower      string `json:"buying_power"`
	Cash             string `json:"cash"`
	InitialMargin    string `json:"initial_margin"`
	Currency         string `json:"currency"`
	TradingBlocked   bool   `json:"trading_blocked"`
	AccountSuspended bool   `json:"account_blocked"`
}

func (a *Adapter) GetAccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return broker.AccountInfo{}, err
	}
	var acct accountPayload
	if err := json.Unmarshal(body, &acct); err != nil {
		return broker.AccountInfo{}, fmt.Errorf("alpaca: decoding account failed: %w", err)
	}
	if acct.TradingBlocked || acct.AccountSuspended {
		return broker.AccountInfo{}, fmt.Errorf("alpaca: account is blocked")
	}
	return broker.AccountInfo{
		Balance:     dec(acct.Equity),
		BuyingPower: dec(acct.BuyingPower),
		Cash:        dec(acct.Cash),
		MarginUsed:  dec(acct.InitialMargin),
		Currency:    acct.Currency,
	}, nil
}

type orderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
}

type orderPayload struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Status         string `json:"status"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

func (a *Adapter) PlaceOrder(ctx context.Context, order broker.Order) (broker.ExecutionReport, error) {
	req := orderRequest{
		Symbol:      broker.NormalizeSymbol(order.Symbol),
		Qty:         order.Quantity.String(),
		Side:        order.Side,
		Type:        order.Type,
		TimeInForce: "day",
	}
	if req.Type == "" {
		req.Type = "market"
	}
	if req.Type == "limit" {
		req.LimitPrice = order.Price.String()
	}
	body, err := a.request(ctx, http.MethodPost, "/v2/orders", req)
	if err != nil {
		return broker.ExecutionReport{}, err
	}
	var placed orderPayload
	if err := json.Unmarshal(body, &placed); err != nil {
		return broker.ExecutionReport{}, fmt.Errorf("alpaca: decoding order failed: %w", err)
	}
	return a.toReport(order.ID, placed), nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	_, err := a.request(ctx, http.MethodDelete, "/v2/orders/"+orderID, nil)
	return err
}

func (a *Adapter) GetOpenOrders(ctx context.Context) ([]broker.ExecutionReport, error) {
	body, err := a.request(ctx, http.MethodGet, "/v2/orders?status=open", nil)
	if err != nil {
		return nil, err
	}
	var open []orderPayload
	if err := json.Unmarshal(body, &open); err != nil {
		return nil, fmt.Errorf("alpaca: decoding open orders failed: %w", err)
	}
	reports := make([]broker.ExecutionReport, 0, len(open))
	for _, ord := range open {
		reports = append(reports, a.toReport("", ord))
	}
	return reports, nil
}

// CloseAllPositions liquidates everything via the bulk positions endpoint.
func (a *Adapter) CloseAllPositions(ctx context.Context) ([]broker.ExecutionReport, error) {
	body, err := a.request(ctx, http.MethodDelete, "/v2/positions?cancel_orders=true", nil)
	if err != nil {
		return nil, err
	}
	var results []struct {
		Symbol string       `json:"symbol"`
		Status int          `json:"status"`
		Body   orderPayload `json:"body"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("alpaca: decoding close-all failed: %w", err)
	}
	reports := make([]broker.ExecutionReport, 0, len(results))
	for _, res := range results {
		report := a.toReport("", res.Body)
		if report.Symbol == "" {
			report.Symbol = res.Symbol
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (a *Adapter) toReport(orderID string, payload orderPayload) broker.ExecutionReport {
	status := broker.StatusSubmitted
	switch payload.Status {
	case "filled":
		status = broker.StatusFilled
	case "partially_filled":
		status = broker.StatusPartial
	case "rejected", "expired":
		status = broker.StatusRejected
	case "canceled":
		status = broker.StatusCancelled
	}
	qty := dec(payload.Qty)
	filled := dec(payload.FilledQty)
	return broker.ExecutionReport{
		OrderID:         orderID,
		PlatformOrderID: payload.ID,
		Symbol:          payload.Symbol,
		Status:          status,
		FilledQty:       filled,
		RemainingQty:    qty.Sub(filled),
		AvgFillPrice:    dec(payload.FilledAvgPrice),
		Platform:        a.Name(),
		Timestamp:       time.Now().UTC(),
	}
}

func (a *Adapter) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", a.cfg.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", a.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpaca: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("alpaca: status=%d %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
