package repositories_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/settings-store/internal/core/domain/setting"
	"github.com/avatarctic/settings-store/internal/infrastructure/db"
	"github.com/avatarctic/settings-store/internal/infrastructure/repositories"
)

var settingColumns = []string{
	"id", "name", "type", "value", "comment", "created_at", "updated_at", "category_id",
	"category_name", "category_comment", "category_created_at",
}

func newMockDB(t *testing.T) (*db.Database, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = raw.Close()
	})
	return &db.Database{DB: sqlx.NewDb(raw, "postgres")}, mock
}

func TestSettingRepository_FindByName(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)
	id, catID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`WHERE s.name = \$1\s+ORDER BY s.category_id IS NOT NULL`).
		WithArgs("limit").
		WillReturnRows(sqlmock.NewRows(settingColumns).
			AddRow(id.String(), "limit", "int", "10", "", now, now, catID.String(), "paging", "Paging", now))

	s, ok, err := repo.FindByName(context.Background(), "limit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, setting.TypeInteger, s.Type)
	assert.Equal(t, int64(10), s.Value)
	require.NotNil(t, s.Category)
	assert.Equal(t, catID, s.Category.ID)
	assert.Equal(t, "paging", s.Category.Name)
}

func TestSettingRepository_FindByName_Absent(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)

	mock.ExpectQuery(`WHERE s.name = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	s, ok, err := repo.FindByName(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestSettingRepository_FindByName_Error(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)

	mock.ExpectQuery(`WHERE s.name = \$1`).WithArgs("x").WillReturnError(errors.New("conn reset"))

	_, ok, err := repo.FindByName(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestSettingRepository_FindByCategoryAndName(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`WHERE s.category_id IS NULL AND s.name = \$1`).
		WithArgs("title").
		WillReturnRows(sqlmock.NewRows(settingColumns).
			AddRow(id.String(), "title", "string", "", "", now, now, nil, nil, nil, nil))

	s, ok, err := repo.FindByCategoryAndName(context.Background(), nil, "title")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, s.Category)
	assert.Equal(t, "", s.Value)

	catID := uuid.New()
	mock.ExpectQuery(`WHERE s.category_id = \$1 AND s.name = \$2`).
		WithArgs(catID, "title").
		WillReturnError(sql.ErrNoRows)

	_, ok, err = repo.FindByCategoryAndName(context.Background(), &catID, "title")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingRepository_FindAllInGroup(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)
	catID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`WHERE c.name = \$1`).
		WithArgs("mail").
		WillReturnRows(sqlmock.NewRows(settingColumns).
			AddRow(uuid.NewString(), "port", "int", "25", "", now, now, catID.String(), "mail", "", now).
			AddRow(uuid.NewString(), "tls", "boolean", "1", "", now, now, catID.String(), "mail", "", now))

	list, err := repo.FindAllInGroup(context.Background(), "mail")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(25), list[0].Value)
	assert.Equal(t, true, list[1].Value)
}

func TestSettingRepository_Save(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)
	s := &setting.Setting{ID: uuid.New(), Name: "tls", Type: setting.TypeBoolean, Value: true}

	mock.ExpectExec(`INSERT INTO settings .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(s.ID, sqlmock.AnyArg(), "tls", "boolean", "1", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), s))
	assert.False(t, s.CreatedAt.IsZero())
}

func TestSettingRepository_Save_UniqueViolation(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)
	s := &setting.Setting{ID: uuid.New(), Name: "dup", Type: setting.TypeString, Value: "x"}

	mock.ExpectExec(`INSERT INTO settings`).WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Save(context.Background(), s)
	require.ErrorIs(t, err, setting.ErrDuplicate)
}

func TestSettingRepository_Delete_NotFound(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM settings WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), id), setting.ErrSettingNotFound)
}

func TestSettingRepository_Count(t *testing.T) {
	database, mock := newMockDB(t)
	repo := repositories.NewSettingRepository(database, nil)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM settings`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
