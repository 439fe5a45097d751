// Package auditlog persists validation chains and signal outcomes so a
// decision can be reconstructed after the fact. Durability lives here, on
// the collaborator side; the pipeline itself stays stateless.
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wyckoff/internal/engine"
	"wyckoff/internal/validation"

	_ "modernc.org/sqlite"
)

type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	ownsDB bool
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, ownsDB: true}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewFromDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("nil db")
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS validation_chains (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			signal_id TEXT NOT NULL,
			overall TEXT NOT NULL,
			results_json TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			completed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chains_signal ON validation_chains(signal_id)`,
		`CREATE TABLE IF NOT EXISTS signal_outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			signal_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			pattern TEXT,
			campaign_id TEXT,
			verdict TEXT,
			report_json TEXT,
			reason TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_signal ON signal_outcomes(signal_id)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("audit log migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) RecordChain(ctx context.Context, chain *validation.Chain) error {
	if chain == nil {
		return nil
	}
	results, err := json.Marshal(chain.Results)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validation_chains (signal_id, overall, results_json, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		chain.SignalID, string(chain.Overall()), string(results),
		chain.StartedAt.UnixMilli(), chain.CompletedAt.UnixMilli())
	return err
}

func (s *Store) RecordOutcome(ctx context.Context, outcome engine.Outcome) error {
	var report []byte
	if outcome.Report != nil {
		report, _ = json.Marshal(outcome.Report)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signal_outcomes (signal_id, symbol, pattern, campaign_id, verdict, report_json, reason, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.SignalID, outcome.Symbol, outcome.Pattern, outcome.CampaignID,
		string(outcome.Verdict), string(report), outcome.Reason, outcome.Timestamp.UnixMilli())
	return err
}

// RecentOutcomes returns the latest n outcomes, newest first, for the ops
// surface.
func (s *Store) RecentOutcomes(ctx context.Context, n int) ([]engine.Outcome, error) {
	if n <= 0 {
		n = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT signal_id, symbol, pattern, campaign_id, verdict, reason FROM signal_outcomes
		 ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.Outcome
	for rows.Next() {
		var o engine.Outcome
		var verdict string
		if err := rows.Scan(&o.SignalID, &o.Symbol, &o.Pattern, &o.CampaignID, &verdict, &o.Reason); err != nil {
			return nil, err
		}
		o.Verdict = validation.Verdict(verdict)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
