// Package repository provides PostgreSQL persistence for threats, findings,
// and vulnerability links.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelsec/kestrel/internal/triage/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ThreatRepository provides CRUD operations for threats against PostgreSQL.
// Nested analysis structures are stored as JSONB.
type ThreatRepository struct {
	db *pgxpool.Pool
}

// NewThreatRepository creates a new ThreatRepository.
func NewThreatRepository(db *pgxpool.Pool) *ThreatRepository {
	return &ThreatRepository{db: db}
}

// Create inserts a new threat record.
func (r *ThreatRepository) Create(ctx context.Context, t *model.Threat) error {
	stride, err := json.Marshal(t.Stride)
	if err != nil {
		return fmt.Errorf("marshal stride: %w", err)
	}
	suggestion, err := json.Marshal(t.Suggestion)
	if err != nil {
		return fmt.Errorf("marshal suggestion: %w", err)
	}
	scores, err := json.Marshal(t.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	mitigations, err := json.Marshal(t.Mitigations)
	if err != nil {
		return fmt.Errorf("marshal mitigations: %w", err)
	}

	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = model.ThreatStatusOpen
	}

	query := `
		INSERT INTO threats (
			id, asset, flow, trust_boundary, stride, suggestion,
			scores, total, risk_level, mitigations, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13
		)`

	_, err = r.db.Exec(ctx, query,
		t.ID, t.Asset, t.Flow, t.TrustBoundary, stride, suggestion,
		scores, t.Total, t.RiskLevel, mitigations, t.Status,
		t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a threat by UUID.
func (r *ThreatRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Threat, error) {
	query := `SELECT * FROM threats WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// List returns threats ordered newest first, optionally filtered by risk
// level and status.
func (r *ThreatRepository) List(ctx context.Context, riskLevel, status string, limit, offset int) ([]*model.Threat, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT * FROM threats
		WHERE ($1 = '' OR risk_level = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, riskLevel, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threats []*model.Threat
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		threats = append(threats, t)
	}
	return threats, rows.Err()
}

// ListAll returns the full threat corpus for similarity and correlation
// calls. The result is a point-in-time snapshot; the engine never sees the
// live store.
func (r *ThreatRepository) ListAll(ctx context.Context) ([]*model.Threat, error) {
	query := `SELECT * FROM threats ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threats []*model.Threat
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		threats = append(threats, t)
	}
	return threats, rows.Err()
}

// UpdateScores persists edited score fields plus the recomputed total and
// risk level, and optionally a new status.
func (r *ThreatRepository) UpdateScores(ctx context.Context, t *model.Threat) error {
	scores, err := json.Marshal(t.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	t.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE threats
		SET scores = $2, total = $3, risk_level = $4, status = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, t.ID, scores, t.Total, t.RiskLevel, t.Status, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes a threat record.
func (r *ThreatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM threats WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByRiskLevel returns threat counts grouped by risk level, used to feed
// the metrics gauge.
func (r *ThreatRepository) CountByRiskLevel(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT risk_level, COUNT(*) FROM threats GROUP BY risk_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// scanOne executes a query returning a single threat row.
func (r *ThreatRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Threat, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return r.scan(rows)
}

// scan reads a single threat from a pgx.Rows cursor. Column order matches
// the threats table definition.
func (r *ThreatRepository) scan(rows pgx.Rows) (*model.Threat, error) {
	var t model.Threat
	var stride, suggestion, scores, mitigations []byte

	err := rows.Scan(
		&t.ID, &t.Asset, &t.Flow, &t.TrustBoundary,
		&stride, &suggestion, &scores, &t.Total, &t.RiskLevel,
		&mitigations, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stride, &t.Stride); err != nil {
		return nil, fmt.Errorf("unmarshal stride: %w", err)
	}
	if err := json.Unmarshal(suggestion, &t.Suggestion); err != nil {
		return nil, fmt.Errorf("unmarshal suggestion: %w", err)
	}
	if err := json.Unmarshal(scores, &t.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	if len(mitigations) > 0 {
		if err := json.Unmarshal(mitigations, &t.Mitigations); err != nil {
			return nil, fmt.Errorf("unmarshal mitigations: %w", err)
		}
	}
	return &t, nil
}
