package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowlet/flowlet/internal/model"
)

const flowColumns = `id, user_id, name, description, data, created_at, updated_at`

// CreateFlow inserts a new flow.
func (r *Postgres) CreateFlow(ctx context.Context, flow *model.Flow) error {
	query := `
		INSERT INTO flows (` + flowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		flow.ID,
		nullable(flow.UserID),
		flow.Name,
		flow.Description,
		[]byte(flow.Data),
		flow.CreatedAt,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create flow: %w", err)
	}
	return nil
}

// GetFlow retrieves a flow by ID regardless of owner.
func (r *Postgres) GetFlow(ctx context.Context, id string) (*model.Flow, error) {
	query := `SELECT ` + flowColumns + ` FROM flows WHERE id = $1`

	flow, err := scanFlow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlowNotFound
	}
	return flow, err
}

// ListFlowsByUserID lists a user's flows, most recently updated first.
func (r *Postgres) ListFlowsByUserID(ctx context.Context, userID string) ([]*model.Flow, error) {
	query := `
		SELECT ` + flowColumns + `
		FROM flows
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var flows []*model.Flow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}
	return flows, nil
}

// DeleteFlow removes one of the user's flows.
func (r *Postgres) DeleteFlow(ctx context.Context, id, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM flows WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFlowNotFound
	}
	return nil
}

func scanFlow(row pgx.Row) (*model.Flow, error) {
	var (
		flow   model.Flow
		userID *string
		data   []byte
	)
	err := row.Scan(
		&flow.ID,
		&userID,
		&flow.Name,
		&flow.Description,
		&data,
		&flow.CreatedAt,
		&flow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}
	if userID != nil {
		flow.UserID = *userID
	}
	flow.Data = data
	return &flow, nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
