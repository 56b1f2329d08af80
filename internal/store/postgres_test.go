package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresKV(t *testing.T) (*PostgresKV, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS kv_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	kv, err := NewPostgresKV(context.Background(), db)
	require.NoError(t, err)
	return kv, mock
}

func TestPostgresKV_Get(t *testing.T) {
	kv, mock := newPostgresKV(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_snapshots WHERE key = $1")).
		WithArgs("absensi_config").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"radiusLimit":100}`)))

	got, err := kv.Get(context.Background(), "absensi_config")
	require.NoError(t, err)
	assert.JSONEq(t, `{"radiusLimit":100}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_GetMissing(t *testing.T) {
	kv, mock := newPostgresKV(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_snapshots WHERE key = $1")).
		WithArgs("absensi_records").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := kv.Get(context.Background(), "absensi_records")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_Set(t *testing.T) {
	kv, mock := newPostgresKV(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_snapshots (key, value)")).
		WithArgs("absensi_users", []byte(`[]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.Set(context.Background(), "absensi_users", []byte(`[]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKV_SetError(t *testing.T) {
	kv, mock := newPostgresKV(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_snapshots (key, value)")).
		WillReturnError(boom)

	err := kv.Set(context.Background(), "absensi_users", []byte(`[]`))
	assert.ErrorIs(t, err, boom)
}

func TestNewPostgresKV_MigrationError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	_, err = NewPostgresKV(context.Background(), db)
	assert.Error(t, err)
}
