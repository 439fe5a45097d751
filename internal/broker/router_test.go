package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"wyckoff/internal/portfolio"
	"wyckoff/internal/risk"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAdapter struct {
	mock.Mock
	name string
}

func (m *MockAdapter) Name() string                         { return m.name }
func (m *MockAdapter) Connect(ctx context.Context) error    { return nil }
func (m *MockAdapter) Disconnect(ctx context.Context) error { return nil }

func (m *MockAdapter) IsConnected(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockAdapter) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(AccountInfo), args.Error(1)
}

func (m *MockAdapter) PlaceOrder(ctx context.Context, order Order) (ExecutionReport, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(ExecutionReport), args.Error(1)
}

func (m *MockAdapter) CancelOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockAdapter) GetOpenOrders(ctx context.Context) ([]ExecutionReport, error) {
	return nil, nil
}

func (m *MockAdapter) CloseAllPositions(ctx context.Context) ([]ExecutionReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ExecutionReport), args.Error(1)
}

type panicAdapter struct{ MockAdapter }

func (p *panicAdapter) PlaceOrder(context.Context, Order) (ExecutionReport, error) {
	panic("venue client nil pointer")
}

func testOrder(symbol string) Order {
	return Order{
		ID:       "ord-1",
		Symbol:   symbol,
		Side:     "buy",
		Type:     "market",
		Quantity: decimal.NewFromInt(100),
	}
}

func emptySnapshot() *portfolio.Snapshot {
	return &portfolio.Snapshot{Equity: decimal.NewFromInt(100000)}
}

func TestRouter_RouteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Kill Switch Blocks Before Everything", func(t *testing.T) {
		adapter := &MockAdapter{name: "oanda"}
		router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
		router.RegisterAdapter(ClassForex, adapter)
		router.ActivateKillSwitch("manual halt")

		report := router.RouteOrder(ctx, testOrder("EURUSD"), emptySnapshot(), risk.CheckRequest{TradeRiskPct: 99})
		assert.Equal(t, StatusRejected, report.Status)
		assert.Equal(t, "kill_switch", report.Platform)
		assert.Contains(t, report.Reason, "manual halt")
		adapter.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})

	t.Run("Risk Gate Rejection Is Tagged", func(t *testing.T) {
		adapter := &MockAdapter{name: "oanda"}
		router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
		router.RegisterAdapter(ClassForex, adapter)

		report := router.RouteOrder(ctx, testOrder("EURUSD"), emptySnapshot(), risk.CheckRequest{TradeRiskPct: 5})
		assert.Equal(t, StatusRejected, report.Status)
		assert.Equal(t, "risk_gate", report.Platform)
		assert.Contains(t, report.Reason, "Risk gate blocked")
		adapter.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})

	t.Run("No Adapter Configured", func(t *testing.T) {
		router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)

		report := router.RouteOrder(ctx, testOrder("EURUSD"), emptySnapshot(), risk.CheckRequest{TradeRiskPct: 1})
		assert.Equal(t, StatusRejected, report.Status)
		assert.Equal(t, "none", report.Platform)
		assert.NotZero(t, report.RemainingQty)
	})

	t.Run("Happy Path Dispatches", func(t *testing.T) {
		adapter := &MockAdapter{name: "oanda"}
		adapter.On("PlaceOrder", mock.Anything, mock.Anything).Return(ExecutionReport{
			OrderID:         "ord-1",
			PlatformOrderID: "venue-42",
			Symbol:          "EURUSD",
			Status:          StatusFilled,
		}, nil)

		router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
		router.RegisterAdapter(ClassForex, adapter)

		report := router.RouteOrder(ctx, testOrder("EURUSD"), emptySnapshot(), risk.CheckRequest{TradeRiskPct: 1})
		assert.Equal(t, StatusFilled, report.Status)
		assert.Equal(t, "venue-42", report.PlatformOrderID)
		assert.Equal(t, "oanda", report.Platform, "router fills missing venue tag")
		adapter.AssertExpectations(t)
	})

	t.Run("Adapter Error Becomes Rejection", func(t *testing.T) {
		adapter := &MockAdapter{name: "oanda"}
		adapter.On("PlaceOrder", mock.Anything, mock.Anything).Return(ExecutionReport{}, errors.New("insufficient margin"))

		router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
		router.RegisterAdapter(ClassForex, adapter)

		report := router.RouteOrder(ctx, testOrder("EURUSD"), emptySnapshot(), risk.CheckRequest{TradeRiskPct: 1})
		assert.Equal(t, StatusRejected, report.Status)
		assert.Contains(t, report.Reason, "insufficient margin")
	})

	t.Run("Adapter Panic Becomes Rejection", func(t *testing.T) {
		adapter := &panicAdapter{MockAdapter{name: "oanda"}}
		router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
		router.RegisterAdapter(ClassForex, adapter)

		report := router.RouteOrder(ctx, testOrder("EURUSD"), emptySnapshot(), risk.CheckRequest{TradeRiskPct: 1})
		assert.Equal(t, StatusRejected, report.Status)
		assert.Contains(t, report.Reason, "adapter fault")
	})
}

func TestRouter_GetAdapter(t *testing.T) {
	forex := &MockAdapter{name: "oanda"}
	stock := &MockAdapter{name: "alpaca"}
	router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
	router.RegisterAdapter(ClassForex, forex)
	router.RegisterAdapter(ClassStock, stock)

	assert.Same(t, Adapter(forex), router.GetAdapter("EUR/USD"))
	assert.Same(t, Adapter(stock), router.GetAdapter("AAPL"))
	assert.Nil(t, router.GetAdapter("BTCUSDT"))
}

func TestRouter_CloseAllPositions(t *testing.T) {
	healthy := &MockAdapter{name: "oanda"}
	healthy.On("CloseAllPositions", mock.Anything).Return([]ExecutionReport{
		{OrderID: "close-1", Symbol: "EURUSD", Status: StatusFilled},
	}, nil)
	broken := &MockAdapter{name: "alpaca"}
	broken.On("CloseAllPositions", mock.Anything).Return(nil, errors.New("connection refused"))

	router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
	router.RegisterAdapter(ClassForex, healthy)
	router.RegisterAdapter(ClassStock, broken)
	router.ActivateKillSwitch("close everything")

	reports := router.CloseAllPositions(context.Background())
	assert.Len(t, reports, 1, "broken venue skipped, close-out unaffected by kill switch")
	assert.Equal(t, "close-1", reports[0].OrderID)
	healthy.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestRouter_PollVenueStatus(t *testing.T) {
	up := &MockAdapter{name: "oanda"}
	up.On("IsConnected", mock.Anything).Return(true)
	down := &MockAdapter{name: "alpaca"}
	down.On("IsConnected", mock.Anything).Return(false)

	router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
	router.RegisterAdapter(ClassForex, up)
	router.RegisterAdapter(ClassStock, down)

	status := router.PollVenueStatus(context.Background())
	assert.Equal(t, map[string]bool{"oanda": true, "alpaca": false}, status)
}

func TestRouter_VenueStatus(t *testing.T) {
	up := &MockAdapter{name: "oanda"}
	up.On("IsConnected", mock.Anything).Return(true).Once()

	router := NewRouter(risk.NewGate(risk.DefaultLimits()), nil)
	router.RegisterAdapter(ClassForex, up)

	assert.Empty(t, router.VenueStatus(), "nothing cached before the first poll")

	router.PollVenueStatus(context.Background())

	t.Run("Serves Last Poll Without Probing", func(t *testing.T) {
		assert.Equal(t, map[string]bool{"oanda": true}, router.VenueStatus())
		assert.Equal(t, map[string]bool{"oanda": true}, router.VenueStatus())
		up.AssertNumberOfCalls(t, "IsConnected", 1)
	})

	t.Run("Returns A Copy", func(t *testing.T) {
		got := router.VenueStatus()
		got["oanda"] = false
		assert.True(t, router.VenueStatus()["oanda"])
	})
}

func TestRejectedReportShape(t *testing.T) {
	order := testOrder("EURUSD")
	report := rejected(order, "risk_gate", "blocked")
	assert.Equal(t, order.ID, report.OrderID)
	assert.True(t, report.RemainingQty.Equal(order.Quantity))
	assert.True(t, report.FilledQty.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), report.Timestamp, time.Minute)
}
