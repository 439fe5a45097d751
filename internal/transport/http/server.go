// Package http exposes the operator surface: status, kill-switch control,
// signal intake and bulk close-out.
package http

import (
	"context"
	"net/http"
	"time"

	"wyckoff/internal/broker"
	"wyckoff/internal/engine"
	"wyckoff/internal/logger"
	"wyckoff/internal/risk"
	"wyckoff/internal/signal"
	"wyckoff/internal/store/auditlog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Server struct {
	addr    string
	engine  *engine.Engine
	router  *broker.Router
	tracker *risk.HeatTracker
	audit   *auditlog.Store
	intake  *SignalSchema

	srv *http.Server
}

func NewServer(addr string, eng *engine.Engine, rt *broker.Router, tracker *risk.HeatTracker, audit *auditlog.Store) (*Server, error) {
	schema, err := NewSignalSchema()
	if err != nil {
		return nil, err
	}
	return &Server{
		addr:    addr,
		engine:  eng,
		router:  rt,
		tracker: tracker,
		audit:   audit,
		intake:  schema,
	}, nil
}

func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/signals", s.handleSignal)
	api.POST("/killswitch/activate", s.handleActivate)
	api.POST("/killswitch/deactivate", s.handleDeactivate)
	api.POST("/close-all", s.handleCloseAll)
	api.GET("/outcomes", s.handleOutcomes)

	s.srv = &http.Server{Addr: s.addr, Handler: r}
	logger.Infof("HTTP: listening on %s", s.addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP: server stopped: %v", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{
		"kill_switch": s.router.KillSwitchStatus(),
		"queue_depth": s.engine.QueueDepth(),
	}
	if s.tracker != nil {
		status["heat_state"] = s.tracker.State().String()
		status["total_risk"] = s.tracker.TotalRisk().String()
	}
	// The scheduler refreshes this; status must not wait on a dead venue.
	status["venues"] = s.router.VenueStatus()
	c.JSON(http.StatusOK, status)
}

type signalPayload struct {
	Symbol     string  `json:"symbol"`
	Pattern    string  `json:"pattern"`
	Timeframe  string  `json:"timeframe"`
	Side       string  `json:"side"`
	Confidence float64 `json:"confidence"`
	RMultiple  float64 `json:"r_multiple"`
	Entry      string  `json:"entry"`
	Stop       string  `json:"stop"`
	Target     string  `json:"target"`
	Size       string  `json:"size"`
}

func (s *Server) handleSignal(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.intake.Validate(raw); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	var payload signalPayload
	if err := jsonUnmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sig := signal.New(payload.Symbol, signal.ParsePattern(payload.Pattern), payload.Confidence, payload.RMultiple)
	sig.Timeframe = payload.Timeframe
	if payload.Side != "" {
		sig.Side = payload.Side
	}
	sig.Entry = mustDec(payload.Entry)
	sig.Stop = mustDec(payload.Stop)
	sig.Target = mustDec(payload.Target)
	sig.Size = mustDec(payload.Size)

	if err := s.engine.Submit(sig); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"signal_id": sig.ID})
}

func (s *Server) handleActivate(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}
	s.router.ActivateKillSwitch(body.Reason)
	c.JSON(http.StatusOK, s.router.KillSwitchStatus())
}

func (s *Server) handleDeactivate(c *gin.Context) {
	s.router.DeactivateKillSwitch()
	c.JSON(http.StatusOK, s.router.KillSwitchStatus())
}

func (s *Server) handleCloseAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	reports := s.router.CloseAllPositions(ctx)
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) handleOutcomes(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusOK, gin.H{"outcomes": []any{}})
		return
	}
	outcomes, err := s.audit.RecentOutcomes(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
