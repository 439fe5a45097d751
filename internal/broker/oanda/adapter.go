// Package oanda is the forex venue adapter, speaking the OANDA v20 REST
// API.
package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wyckoff/internal/broker"
	"wyckoff/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

type Config struct {
	BaseURL   string
	AccountID string
	APIToken  string
}

type Adapter struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-fxpractice.oanda.com"
	}
	return &Adapter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Adapter) Name() string { return "oanda" }

func (a *Adapter) Connect(ctx context.Context) error {
	_, err := a.GetAccountInfo(ctx)
	return err
}

func (a *Adapter) Disconnect(context.Context) error { return nil }

func (a *Adapter) IsConnected(ctx context.Context) bool {
	_, err := a.GetAccountInfo(ctx)
	return err == nil
}

// GetAccountInfo fetches the account summary. The payload shape varies by
// API version so fields are picked leniently with gjson.
func (a *Adapter) GetAccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	body, err := a.get(ctx, fmt.Sprintf("/v3/accounts/%s/summary", a.cfg.AccountID))
	if err != nil {
		return broker.AccountInfo{}, err
	}
	account := gjson.GetBytes(body, "account")
	if !account.Exists() {
		return broker.AccountInfo{}, fmt.Errorf("oanda: summary payload missing account")
	}
	return broker.AccountInfo{
		Balance:     decFromResult(account.Get("balance")),
		BuyingPower: decFromResult(account.Get("marginAvailable")),
		Cash:        decFromResult(account.Get("balance")),
		MarginUsed:  decFromResult(account.Get("marginUsed")),
		Currency:    account.Get("currency").String(),
	}, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, order broker.Order) (broker.ExecutionReport, error) {
	units := order.Quantity
	if strings.EqualFold(order.Side, "sell") {
		units = units.Neg()
	}
	payload := map[string]any{
		"order": map[string]any{
			"instrument":   instrument(order.Symbol),
			"units":        units.String(),
			"type":         strings.ToUpper(orderType(order)),
			"timeInForce":  "FOK",
			"positionFill": "DEFAULT",
		},
	}
	if !order.Price.IsZero() {
		payload["order"].(map[string]any)["price"] = order.Price.String()
	}
	body, err := a.post(ctx, fmt.Sprintf("/v3/accounts/%s/orders", a.cfg.AccountID), payload)
	if err != nil {
		return broker.ExecutionReport{}, err
	}

	report := broker.ExecutionReport{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Platform:  a.Name(),
		Timestamp: time.Now().UTC(),
	}
	if fill := gjson.GetBytes(body, "orderFillTransaction"); fill.Exists() {
		report.Status = broker.StatusFilled
		report.PlatformOrderID = fill.Get("orderID").String()
		report.FilledQty = decFromResult(fill.Get("units")).Abs()
		report.AvgFillPrice = decFromResult(fill.Get("price"))
		report.RemainingQty = order.Quantity.Sub(report.FilledQty)
		return report, nil
	}
	if cancel := gjson.GetBytes(body, "orderCancelTransaction"); cancel.Exists() {
		report.Status = broker.StatusRejected
		report.Reason = cancel.Get("reason").String()
		report.RemainingQty = order.Quantity
		return report, nil
	}
	report.Status = broker.StatusSubmitted
	report.PlatformOrderID = gjson.GetBytes(body, "orderCreateTransaction.id").String()
	report.RemainingQty = order.Quantity
	return report, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		a.cfg.BaseURL+fmt.Sprintf("/v3/accounts/%s/orders/%s/cancel", a.cfg.AccountID, orderID), nil)
	if err != nil {
		return err
	}
	_, err = a.do(req)
	return err
}

func (a *Adapter) GetOpenOrders(ctx context.Context) ([]broker.ExecutionReport, error) {
	body, err := a.get(ctx, fmt.Sprintf("/v3/accounts/%s/pendingOrders", a.cfg.AccountID))
	if err != nil {
		return nil, err
	}
	var reports []broker.ExecutionReport
	gjson.GetBytes(body, "orders").ForEach(func(_, ord gjson.Result) bool {
		reports = append(reports, broker.ExecutionReport{
			PlatformOrderID: ord.Get("id").String(),
			Symbol:          ord.Get("instrument").String(),
			Status:          broker.StatusSubmitted,
			RemainingQty:    decFromResult(ord.Get("units")).Abs(),
			Platform:        a.Name(),
		})
		return true
	})
	return reports, nil
}

// CloseAllPositions flattens every open position, one close request per
// instrument, and keeps going past individual failures.
func (a *Adapter) CloseAllPositions(ctx context.Context) ([]broker.ExecutionReport, error) {
	body, err := a.get(ctx, fmt.Sprintf("/v3/accounts/%s/openPositions", a.cfg.AccountID))
	if err != nil {
		return nil, err
	}
	var reports []broker.ExecutionReport
	gjson.GetBytes(body, "positions").ForEach(func(_, pos gjson.Result) bool {
		inst := pos.Get("instrument").String()
		payload := map[string]any{"longUnits": "ALL", "shortUnits": "ALL"}
		closeBody, closeErr := a.put(ctx, fmt.Sprintf("/v3/accounts/%s/positions/%s/close", a.cfg.AccountID, inst), payload)
		if closeErr != nil {
			logger.Warnf("oanda: closing %s failed: %v", inst, closeErr)
			return true
		}
		fill := gjson.GetBytes(closeBody, "longOrderFillTransaction")
		if !fill.Exists() {
			fill = gjson.GetBytes(closeBody, "shortOrderFillTransaction")
		}
		reports = append(reports, broker.ExecutionReport{
			PlatformOrderID: fill.Get("orderID").String(),
			Symbol:          inst,
			Status:          broker.StatusFilled,
			FilledQty:       decFromResult(fill.Get("units")).Abs(),
			AvgFillPrice:    decFromResult(fill.Get("price")),
			Platform:        a.Name(),
			Timestamp:       time.Now().UTC(),
		})
		return true
	})
	return reports, nil
}

func (a *Adapter) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return a.do(req)
}

func (a *Adapter) post(ctx context.Context, path string, payload any) ([]byte, error) {
	return a.send(ctx, http.MethodPost, path, payload)
}

func (a *Adapter) put(ctx context.Context, path string, payload any) ([]byte, error) {
	return a.send(ctx, http.MethodPut, path, payload)
}

func (a *Adapter) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	return a.do(req)
}

func (a *Adapter) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oanda: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		msg := gjson.GetBytes(body, "errorMessage").String()
		if msg == "" {
			msg = string(body)
		}
		return nil, fmt.Errorf("oanda: status=%d %s", resp.StatusCode, msg)
	}
	return body, nil
}

// instrument converts EURUSD to OANDA's EUR_USD form.
func instrument(symbol string) string {
	norm := broker.NormalizeSymbol(symbol)
	if len(norm) == 6 {
		return norm[:3] + "_" + norm[3:]
	}
	return norm
}

func orderType(order broker.Order) string {
	if order.Type == "" || order.Price.IsZero() {
		return "market"
	}
	return order.Type
}

func decFromResult(r gjson.Result) decimal.Decimal {
	d, err := decimal.NewFromString(r.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
