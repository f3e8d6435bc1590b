package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*data,\s*updated_at\s+FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+collection\s*=\s*\$2\s+ORDER\s+BY\s+id`).
		WithArgs("u1", "notes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "updated_at"}).
			AddRow("a", []byte(`{"id":"a"}`), now).
			AddRow("b", []byte(`{"id":"b"}`), now))

	docs, err := repo.List(context.Background(), "u1", models.Notes)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, models.Notes, docs[1].Collection)
	assert.JSONEq(t, `{"id":"a"}`, string(docs[0].Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ScanError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "updated_at"}).AddRow("a", "x", "not-a-time"))

	_, err := repo.List(context.Background(), "u1", models.Notes)
	assert.ErrorContains(t, err, "db error")
}

func TestUpsert(t *testing.T) {
	q := `(?s)INSERT\s+INTO\s+documents.*ON\s+CONFLICT.*IS\s+DISTINCT\s+FROM.*RETURNING\s+\(xmax\s*=\s*0\)`

	tests := []struct {
		name string
		rows func(m sqlmock.Sqlmock)
		want Outcome
		err  bool
	}{
		{
			name: "inserted",
			rows: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q).WithArgs("u1", "debts", "d1", `{"id":"d1"}`).
					WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
			},
			want: Inserted,
		},
		{
			name: "updated",
			rows: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
			},
			want: Updated,
		},
		{
			name: "identical data",
			rows: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q).WillReturnError(sql.ErrNoRows)
			},
			want: Unchanged,
		},
		{
			name: "db error",
			rows: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(q).WillReturnError(errors.New("boom"))
			},
			err: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			tt.rows(mock)

			got, err := repo.Upsert(context.Background(), "u1", models.Debts, "d1", []byte(`{"id":"d1"}`))
			if tt.err {
				assert.ErrorContains(t, err, "boom")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := `(?s)DELETE\s+FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+collection\s*=\s*\$2\s+AND\s+id\s*=\s*\$3\s+RETURNING\s+data`

	mock.ExpectQuery(q).WithArgs("u1", "bills", "b1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"id":"b1"}`)))
	mock.ExpectQuery(q).WithArgs("u1", "bills", "b2").WillReturnError(sql.ErrNoRows)

	data, err := repo.Delete(context.Background(), "u1", models.Bills, "b1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"b1"}`, string(data))

	data, err = repo.Delete(context.Background(), "u1", models.Bills, "b2")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDeleteAll(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)DELETE\s+FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+collection\s*=\s*\$2\s+RETURNING`).
		WithArgs("u1", "deletions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "updated_at"}).
			AddRow("notes:n1", []byte(`{}`), time.Now()))

	docs, err := repo.DeleteAll(context.Background(), "u1", models.Deletions)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes:n1", docs[0].ID)
}
