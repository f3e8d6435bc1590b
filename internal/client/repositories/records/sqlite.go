package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/models"
)

// SQLiteRepository implements Repository over a DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func checkCollection(c models.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return nil
}

func encode(c models.Collection, rec models.Record) (string, []byte, error) {
	if err := checkCollection(c); err != nil {
		return "", nil, err
	}
	id := rec.ID()
	if id == "" {
		return "", nil, ErrMissingID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s/%s: %w", c, id, err)
	}
	return id, data, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, c models.Collection, rec models.Record) error {
	id, data, err := encode(c, rec)
	if err != nil {
		return err
	}
	n, err := dbx.ExecAffected(ctx, r.db, `
		INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING
	`, string(c), id, string(data))
	if err != nil {
		return fmt.Errorf("failed to add %s/%s: %w", c, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyExists, c, id)
	}
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, c models.Collection, rec models.Record) error {
	id, data, err := encode(c, rec)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data
	`, string(c), id, string(data))
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", c, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, c models.Collection, id string) (models.Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM records WHERE collection = ? AND id = ?`, string(c), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}
	return decode(data)
}

func (r *SQLiteRepository) GetAll(ctx context.Context, c models.Collection) ([]models.Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	return r.query(ctx, `SELECT data FROM records WHERE collection = ? ORDER BY id`, string(c))
}

func (r *SQLiteRepository) GetAllByIndex(ctx context.Context, c models.Collection, field, value string) ([]models.Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	if !c.HasIndex(field) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, c, field)
	}
	// field is whitelisted above; the expression must match the index
	// definition for SQLite to use it.
	query := fmt.Sprintf(`SELECT data FROM records WHERE collection = ? AND json_extract(data, '$.%s') = ? ORDER BY id`, field)
	return r.query(ctx, query, string(c), value)
}

func (r *SQLiteRepository) Delete(ctx context.Context, c models.Collection, id string) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, c models.Collection) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, string(c)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, c models.Collection) (int, error) {
	if err := checkCollection(c); err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, string(c)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c, err)
	}
	return n, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	result := make([]models.Record, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return result, nil
}

func decode(data string) (models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}
