package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/models"
	servermodels "github.com/dmitrijs2005/finsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID string, c models.Collection) ([]servermodels.Document, error) {
	query := `
		SELECT id, data, updated_at
		FROM documents
		WHERE user_id = $1 AND collection = $2
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, string(c))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []servermodels.Document
	for rows.Next() {
		d := servermodels.Document{UserID: userID, Collection: c}
		if err := rows.Scan(&d.ID, &d.Data, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, c models.Collection, id string, data []byte) (Outcome, error) {
	query := `
		INSERT INTO documents (user_id, collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, collection, id) DO UPDATE
			SET data = EXCLUDED.data, updated_at = now()
			WHERE documents.data IS DISTINCT FROM EXCLUDED.data
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.db.QueryRowContext(ctx, query, userID, string(c), id, string(data)).Scan(&inserted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Unchanged, nil
	case err != nil:
		return Unchanged, fmt.Errorf("db error: %w", err)
	case inserted:
		return Inserted, nil
	default:
		return Updated, nil
	}
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, c models.Collection, id string) ([]byte, error) {
	query := `
		DELETE FROM documents
		WHERE user_id = $1 AND collection = $2 AND id = $3
		RETURNING data
	`
	var data []byte
	err := r.db.QueryRowContext(ctx, query, userID, string(c), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, userID string, c models.Collection) ([]servermodels.Document, error) {
	query := `
		DELETE FROM documents
		WHERE user_id = $1 AND collection = $2
		RETURNING id, data, updated_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, string(c))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []servermodels.Document
	for rows.Next() {
		d := servermodels.Document{UserID: userID, Collection: c}
		if err := rows.Scan(&d.ID, &d.Data, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
