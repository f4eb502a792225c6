package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/adx-service/internal/models"
)

const analysisColumns = `id, source, period, bar_count, chart_rows, latest_adx, latest_plus_di, latest_minus_di, created_at`

// CreateAnalysis stores an analysis and all of its rows in one transaction
func (db *DB) CreateAnalysis(ctx context.Context, a *models.Analysis, rows []models.ADXRow) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID, a.Source, a.Period, a.BarCount, a.ChartRows,
		a.LatestADX, a.LatestPlusDI, a.LatestMinusDI, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_rows (
			analysis_id, row_index, open, high, low, close,
			tr, plus_dm1, minus_dm1, tr14, plus_dm14, minus_dm14,
			plus_di14, minus_di14, di14_diff, di14_sum, dx, adx
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			a.ID, r.Index, r.Open, r.High, r.Low, r.Close,
			r.TR, r.PlusDM1, r.MinusDM1, r.TR14, r.PlusDM14, r.MinusDM14,
			r.PlusDI14, r.MinusDI14, r.DI14Diff, r.DI14Sum, r.DX, r.ADX,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAnalysis retrieves an analysis by ID
func (db *DB) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	a, err := scanAnalysis(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// GetAnalysisRows retrieves the derived rows of an analysis in index order
func (db *DB) GetAnalysisRows(ctx context.Context, id string) ([]models.ADXRow, error) {
	query := `
		SELECT row_index, open, high, low, close,
			tr, plus_dm1, minus_dm1, tr14, plus_dm14, minus_dm14,
			plus_di14, minus_di14, di14_diff, di14_sum, dx, adx
		FROM analysis_rows
		WHERE analysis_id = $1
		ORDER BY row_index
	`
	rows, err := db.conn.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis rows: %w", err)
	}
	defer rows.Close()

	var out []models.ADXRow
	for rows.Next() {
		var r models.ADXRow
		err := rows.Scan(
			&r.Index, &r.Open, &r.High, &r.Low, &r.Close,
			&r.TR, &r.PlusDM1, &r.MinusDM1, &r.TR14, &r.PlusDM14, &r.MinusDM14,
			&r.PlusDI14, &r.MinusDI14, &r.DI14Diff, &r.DI14Sum, &r.DX, &r.ADX,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis rows: %w", err)
	}
	return out, nil
}

// ListRecentAnalyses returns the newest analyses first
func (db *DB) ListRecentAnalyses(ctx context.Context, limit int) ([]*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC LIMIT $1`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes an analysis and its rows
func (db *DB) DeleteAnalysis(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAnalysesOlderThan removes analyses created before t
func (db *DB) DeleteAnalysesOlderThan(ctx context.Context, t time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < $1`, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old analyses: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s rowScanner) (*models.Analysis, error) {
	var a models.Analysis
	err := s.Scan(
		&a.ID, &a.Source, &a.Period, &a.BarCount, &a.ChartRows,
		&a.LatestADX, &a.LatestPlusDI, &a.LatestMinusDI, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
