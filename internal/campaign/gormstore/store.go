// Package gormstore is the SQLite-backed campaign repository.
package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wyckoff/internal/campaign"
	"wyckoff/internal/signal"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type campaignModel struct {
	ID            string `gorm:"primaryKey"`
	HumanID       string `gorm:"uniqueIndex"`
	Symbol        string `gorm:"index"`
	RangeStart    int64
	Status        string `gorm:"index"`
	Phase         string
	SignalIDs     datatypes.JSON
	TotalRisk     string
	TotalShares   string
	UnrealizedPnL string
	CreatedAt     int64
	UpdatedAt     int64
}

func (campaignModel) TableName() string { return "campaigns" }

type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewFromDB(db)
}

func NewFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("nil gorm db")
	}
	if err := db.AutoMigrate(&campaignModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) GetActiveCampaigns(ctx context.Context, symbol string) ([]*campaign.Campaign, error) {
	var rows []campaignModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND status IN ?", symbol, []string{string(campaign.StatusActive), string(campaign.StatusMarkup)}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying active campaigns failed: %w", err)
	}
	out := make([]*campaign.Campaign, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) CreateCampaign(ctx context.Context, spec campaign.Spec) (*campaign.Campaign, error) {
	c := campaign.NewCampaign(spec)
	if err := s.db.WithContext(ctx).Create(toModel(c)).Error; err != nil {
		return nil, fmt.Errorf("creating campaign failed: %w", err)
	}
	return c, nil
}

func (s *Store) AddSignalToCampaign(ctx context.Context, campaignID string, sig *signal.Signal) error {
	if sig == nil {
		return fmt.Errorf("nil signal")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row campaignModel
		if err := tx.First(&row, "id = ?", campaignID).Error; err != nil {
			return fmt.Errorf("campaign %s not found: %w", campaignID, err)
		}
		c := fromModel(&row)
		for _, id := range c.SignalIDs {
			if id == sig.ID {
				return nil // already bound, idempotent
			}
		}
		c.SignalIDs = append(c.SignalIDs, sig.ID)
		c.TotalRisk = c.TotalRisk.Add(sig.RiskAmount())
		c.TotalShares = c.TotalShares.Add(sig.Size)
		c.UpdatedAt = time.Now().UTC()
		return tx.Save(toModel(c)).Error
	})
}

func toModel(c *campaign.Campaign) *campaignModel {
	ids, _ := json.Marshal(c.SignalIDs)
	return &campaignModel{
		ID:            c.ID,
		HumanID:       c.HumanID,
		Symbol:        c.Symbol,
		RangeStart:    c.RangeStart.UnixMilli(),
		Status:        string(c.Status),
		Phase:         c.Phase,
		SignalIDs:     datatypes.JSON(ids),
		TotalRisk:     c.TotalRisk.String(),
		TotalShares:   c.TotalShares.String(),
		UnrealizedPnL: c.UnrealizedPnL.String(),
		CreatedAt:     c.CreatedAt.UnixMilli(),
		UpdatedAt:     c.UpdatedAt.UnixMilli(),
	}
}

func fromModel(m *campaignModel) *campaign.Campaign {
	var ids []string
	if len(m.SignalIDs) > 0 {
		_ = json.Unmarshal(m.SignalIDs, &ids)
	}
	return &campaign.Campaign{
		ID:            m.ID,
		HumanID:       m.HumanID,
		Symbol:        m.Symbol,
		RangeStart:    time.UnixMilli(m.RangeStart).UTC(),
		Status:        campaign.Status(m.Status),
		Phase:         m.Phase,
		SignalIDs:     ids,
		TotalRisk:     decFromString(m.TotalRisk),
		TotalShares:   decFromString(m.TotalShares),
		UnrealizedPnL: decFromString(m.UnrealizedPnL),
		CreatedAt:     time.UnixMilli(m.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMilli(m.UpdatedAt).UTC(),
	}
}

func decFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
