package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelsec/kestrel/internal/triage/model"
)

// FindingRepository stores scanner findings ingested directly or imported
// from SARIF reports.
type FindingRepository struct {
	db *pgxpool.Pool
}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository(db *pgxpool.Pool) *FindingRepository {
	return &FindingRepository{db: db}
}

// Create inserts a new finding.
func (r *FindingRepository) Create(ctx context.Context, f *model.Finding) error {
	f.ID = uuid.New()
	f.IngestedAt = time.Now().UTC()

	query := `
		INSERT INTO findings (id, tool, rule_id, title, description, severity, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		f.ID, f.Tool, f.RuleID, f.Title, f.Description, f.Severity, f.IngestedAt,
	)
	return err
}

// CreateBatch inserts findings from a single import inside one transaction.
func (r *FindingRepository) CreateBatch(ctx context.Context, findings []*model.Finding) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO findings (id, tool, rule_id, title, description, severity, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now().UTC()
	for _, f := range findings {
		f.ID = uuid.New()
		f.IngestedAt = now
		_, err := tx.Exec(ctx, query,
			f.ID, f.Tool, f.RuleID, f.Title, f.Description, f.Severity, f.IngestedAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID retrieves a finding by UUID.
func (r *FindingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Finding, error) {
	rows, err := r.db.Query(ctx, `SELECT * FROM findings WHERE id = $1`, id)
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

// List returns findings ordered newest first, optionally filtered by tool.
func (r *FindingRepository) List(ctx context.Context, tool string, limit, offset int) ([]*model.Finding, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT * FROM findings
		WHERE ($1 = '' OR tool = $1)
		ORDER BY ingested_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, tool, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []*model.Finding
	for rows.Next() {
		f, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func (r *FindingRepository) scan(rows pgx.Rows) (*model.Finding, error) {
	var f model.Finding
	err := rows.Scan(
		&f.ID, &f.Tool, &f.RuleID, &f.Title, &f.Description, &f.Severity, &f.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
