package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/database"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// ScanRepository defines the interface for scan result data access.
// Every operation is scoped to an owning user; cross-user reads are not
// expressible through this interface.
type ScanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	GetByID(ctx context.Context, userID, scanID uuid.UUID) (*models.Scan, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Scan, error)
	Delete(ctx context.Context, userID, scanID uuid.UUID) error
}

// scanRepository implements ScanRepository using PostgreSQL.
type scanRepository struct {
	db *database.DB
}

// NewScanRepository creates a new scan repository.
func NewScanRepository(db *database.DB) ScanRepository {
	return &scanRepository{db: db}
}

// Create persists a scan with its parsed analysis as jsonb.
func (r *scanRepository) Create(ctx context.Context, scan *models.Scan) error {
	if scan.ID == uuid.Nil {
		scan.ID = uuid.New()
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}

	analysisJSON, err := json.Marshal(scan.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	query := `
		INSERT INTO scans (id, user_id, resume_text, job_description, analysis, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		scan.ID,
		scan.UserID,
		scan.ResumeText,
		scan.JobDescription,
		analysisJSON,
		scan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}

	return nil
}

// GetByID retrieves a scan owned by the given user.
func (r *scanRepository) GetByID(ctx context.Context, userID, scanID uuid.UUID) (*models.Scan, error) {
	query := `
		SELECT id, user_id, resume_text, job_description, analysis, created_at
		FROM scans
		WHERE id = $1 AND user_id = $2`

	scan, err := scanScanRow(r.db.QueryRow(ctx, query, scanID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return scan, nil
}

// ListByUserID retrieves a user's scans, newest first.
func (r *scanRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Scan, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, resume_text, job_description, analysis, created_at
		FROM scans
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		scan, err := scanScanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}

	return scans, rows.Err()
}

// Delete removes a scan owned by the given user.
func (r *scanRepository) Delete(ctx context.Context, userID, scanID uuid.UUID) error {
	query := `DELETE FROM scans WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, query, scanID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanScanRow(row pgx.Row) (*models.Scan, error) {
	var scan models.Scan
	var analysisJSON []byte

	err := row.Scan(
		&scan.ID,
		&scan.UserID,
		&scan.ResumeText,
		&scan.JobDescription,
		&analysisJSON,
		&scan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(analysisJSON) > 0 {
		var analysis models.ScanAnalysis
		if err := json.Unmarshal(analysisJSON, &analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		scan.Analysis = &analysis
	}

	return &scan, nil
}
