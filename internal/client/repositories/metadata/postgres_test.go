package metadata

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestPostgres_Get(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`^SELECT value FROM metadata WHERE key = \$1$`).
		WithArgs("entries").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("[]")))

	v, err := repo.Get(context.Background(), "entries")
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMissing(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT value FROM metadata`).
		WithArgs("salt").
		WillReturnError(sql.ErrNoRows)

	v, err := repo.Get(context.Background(), "salt")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT value FROM metadata`).
		WithArgs("salt").
		WillReturnError(errors.New("conn reset"))

	_, err := repo.Get(context.Background(), "salt")
	require.ErrorContains(t, err, "failed to get metadata[salt]")
}

func TestPostgres_SetUpserts(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^\s*INSERT\s+INTO\s+metadata\s+\(key, value\)\s+VALUES\s+\(\$1, \$2\)\s+ON\s+CONFLICT\s+\(key\)\s+DO\s+UPDATE\s+SET\s+value\s*=\s*EXCLUDED\.value\s*$`
	mock.ExpectExec(q).
		WithArgs("verifier", []byte{1, 2}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), "verifier", []byte{1, 2}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO metadata`).WillReturnError(errors.New("boom"))

	require.ErrorContains(t, repo.Set(context.Background(), "k", []byte("v")), "failed to set metadata[k]")
}

func TestPostgres_DeleteAndClear(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`^DELETE FROM metadata WHERE key = \$1$`).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE FROM metadata$`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.Delete(context.Background(), "k"))
	require.NoError(t, repo.Clear(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_List(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT key, value FROM metadata ORDER BY key`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("entries", []byte("[]")).
			AddRow("salt", []byte{9}))

	m, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"entries": []byte("[]"), "salt": {9}}, m)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRowError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT key, value FROM metadata`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("a", []byte{1}).
			RowError(0, errors.New("bad row")))

	_, err := repo.List(context.Background())
	require.ErrorContains(t, err, "failed to iterate metadata rows")
}
