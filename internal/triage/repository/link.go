package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kestrelsec/kestrel/internal/triage/model"
)

// LinkRepository stores confirmed threat-to-finding links.
type LinkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates a new LinkRepository.
func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a new vulnerability link.
func (r *LinkRepository) Create(ctx context.Context, l *model.VulnerabilityLink) error {
	l.ID = uuid.New()
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = model.LinkStatusLinked
	}

	query := `
		INSERT INTO vulnerability_links (id, threat_id, finding_id, similarity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		l.ID, l.ThreatID, l.FindingID, l.Similarity, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

// GetByID retrieves a link by UUID.
func (r *LinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.VulnerabilityLink, error) {
	rows, err := r.db.Query(ctx, `SELECT * FROM vulnerability_links WHERE id = $1`, id)
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

// List returns links ordered newest first, optionally filtered by threat or
// finding.
func (r *LinkRepository) List(ctx context.Context, threatID, findingID *uuid.UUID, limit, offset int) ([]*model.VulnerabilityLink, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT * FROM vulnerability_links
		WHERE ($1::uuid IS NULL OR threat_id = $1)
		  AND ($2::uuid IS NULL OR finding_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, threatID, findingID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*model.VulnerabilityLink
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// UpdateStatus transitions a link's triage status.
func (r *LinkRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LinkStatus) (*model.VulnerabilityLink, error) {
	query := `
		UPDATE vulnerability_links
		SET status = $2, updated_at = $3
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *LinkRepository) scan(rows pgx.Rows) (*model.VulnerabilityLink, error) {
	var l model.VulnerabilityLink
	err := rows.Scan(
		&l.ID, &l.ThreatID, &l.FindingID, &l.Similarity, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
