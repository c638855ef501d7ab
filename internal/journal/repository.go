// Package journal persists every decision, fill and epoch outcome to the
// agent's SQLite journal. The journal is an append-only audit trail: rows
// are never updated or deleted by the engine.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/google/uuid"
)

// schema is the journal database schema. Applied idempotently on startup.
const schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id         TEXT PRIMARY KEY,
    tick       INTEGER NOT NULL,
    symbol     TEXT NOT NULL,
    side       TEXT NOT NULL,
    amount     REAL NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    tags       TEXT NOT NULL DEFAULT '[]',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);
CREATE INDEX IF NOT EXISTS idx_decisions_tick ON decisions(tick);

CREATE TABLE IF NOT EXISTS fills (
    id         TEXT PRIMARY KEY,
    tick       INTEGER NOT NULL,
    symbol     TEXT NOT NULL,
    side       TEXT NOT NULL,
    amount     REAL NOT NULL,
    fill_price REAL NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);

CREATE TABLE IF NOT EXISTS epochs (
    id         TEXT PRIMARY KEY,
    rank       INTEGER NOT NULL,
    total      INTEGER NOT NULL,
    label      TEXT NOT NULL,
    reflection TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
`

// DecisionRecord is one journaled decision row.
type DecisionRecord struct {
	ID        string
	Tick      int64
	Symbol    string
	Side      domain.Side
	Amount    float64
	Reason    string
	Tags      []string
	CreatedAt time.Time
}

// EpochRecord is one journaled epoch outcome.
type EpochRecord struct {
	ID         string
	Rank       int
	Total      int
	Label      string
	Reflection string
	CreatedAt  time.Time
}

// Repository provides journal operations.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a journal repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate applies the journal schema.
func (r *Repository) Migrate() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply journal schema: %w", err)
	}
	return nil
}

// RecordDecision persists an emitted decision.
func (r *Repository) RecordDecision(tick int64, decision *domain.TradeDecision) error {
	if decision == nil {
		return nil
	}

	tags, err := json.Marshal(decision.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal decision tags: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO decisions (id, tick, symbol, side, amount, reason, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), tick, decision.Symbol, string(decision.Side),
		decision.Amount, decision.Reason, string(tags), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// RecordFill persists a confirmed fill.
func (r *Repository) RecordFill(tick int64, symbol string, side domain.Side, amount, fillPrice float64) error {
	_, err := r.db.Exec(
		`INSERT INTO fills (id, tick, symbol, side, amount, fill_price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), tick, symbol, string(side), amount, fillPrice, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record fill: %w", err)
	}
	return nil
}

// RecordEpoch persists an epoch outcome.
func (r *Repository) RecordEpoch(rank, total int, label, reflection string) error {
	_, err := r.db.Exec(
		`INSERT INTO epochs (id, rank, total, label, reflection, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), rank, total, label, reflection, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record epoch: %w", err)
	}
	return nil
}

// RecentDecisions returns the latest decisions, newest first.
func (r *Repository) RecentDecisions(limit int) ([]DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, tick, symbol, side, amount, reason, tags, created_at
		 FROM decisions ORDER BY created_at DESC, tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var side, tagsJSON string
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Tick, &rec.Symbol, &side, &rec.Amount, &rec.Reason, &tagsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		rec.Side = domain.Side(side)
		rec.CreatedAt = time.Unix(createdAt, 0)
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			rec.Tags = nil
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Epochs returns all journaled epoch outcomes, oldest first.
func (r *Repository) Epochs() ([]EpochRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, rank, total, label, reflection, created_at
		 FROM epochs ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query epochs: %w", err)
	}
	defer rows.Close()

	var records []EpochRecord
	for rows.Next() {
		var rec EpochRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Rank, &rec.Total, &rec.Label, &rec.Reflection, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan epoch row: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}
