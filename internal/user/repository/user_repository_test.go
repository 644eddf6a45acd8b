package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairdesk/internal/domain"
	"repairdesk/internal/errors"
	"repairdesk/internal/testutil"
)

var userRowColumns = []string{"id", "phone", "name", "passwordHash", "role", "isActive", "createdAt", "updatedAt"}

// Unit Tests

func TestNewMySQLUserRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLUserRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestUserRepository_FindByID_Mock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM Users WHERE id = ?`)).
		WithArgs(uint(4)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(4, "13800000000", "Tom", "hash", "technician", true, now, now))

	user, err := NewMySQLUserRepository(db).FindByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, "Tom", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIDForShare_Mock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM Users WHERE id = ? FOR SHARE`)).
		WithArgs(uint(4)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(4, "13800000000", "Tom", "hash", "technician", false, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM Users WHERE id = ? FOR SHARE`)).
		WithArgs(uint(5)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewMySQLUserRepository(db)

	user, err := repo.FindByIDForShare(context.Background(), tx, 4)
	require.NoError(t, err)
	assert.False(t, user.IsActiveTechnician())

	_, err = repo.FindByIDForShare(context.Background(), tx, 5)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByPhone_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM Users WHERE phone = ?`)).
		WithArgs("404").
		WillReturnError(sql.ErrNoRows)

	_, err = NewMySQLUserRepository(db).FindByPhone(context.Background(), "404")
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestUserRepository_Insert_DuplicatePhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO Users`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewMySQLUserRepository(db).Insert(context.Background(), &domain.User{Phone: "1", Role: domain.RoleUser})
	ce, ok := errors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, "phone number is already registered", ce.Message)
}

// Integration Tests

func TestUserRepository_InsertAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLUserRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	id, err := repo.Insert(ctx, &domain.User{
		Phone:        "13900000001",
		Name:         "Alice",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	byID, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "13900000001", byID.Phone)
	assert.Equal(t, domain.RoleUser, byID.Role)

	byPhone, err := repo.FindByPhone(ctx, "13900000001")
	require.NoError(t, err)
	assert.Equal(t, id, byPhone.ID)

	_, err = repo.Insert(ctx, &domain.User{Phone: "13900000001", Role: domain.RoleUser, CreatedAt: now, UpdatedAt: now})
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	_, err := NewMySQLUserRepository(db).FindByID(context.Background(), 999999)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}
