package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairdesk/internal/domain"
	"repairdesk/internal/errors"
	"repairdesk/internal/testutil"
)

func uintPtr(v uint) *uint { return &v }

var orderRowColumns = []string{
	"id", "ownerId", "assignedTechnicianId", "status", "deviceType", "deviceBrand", "deviceModel",
	"serviceType", "description", "contactName", "contactPhone", "address", "isUrgent", "images",
	"createdAt", "updatedAt",
}

// Unit Tests

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestOrderRepository_List_AppliesScopeInQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLOrderRepository(db)
	status := domain.OrderStatusAssigned
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM Orders WHERE status = ? AND ownerId = ?`)).
		WithArgs("assigned", uint(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM Orders WHERE status = \? AND ownerId = \? ORDER BY createdAt DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs("assigned", uint(7), 2, 2).
		WillReturnRows(sqlmock.NewRows(orderRowColumns).
			AddRow(5, 7, 9, "assigned", "phone", "Acme", "X1", "screen", "cracked", "Ann", "555", "Main St", true, []byte(`["a.jpg"]`), now, now))

	orders, total, err := repo.List(context.Background(), domain.OrderFilter{
		Status:  &status,
		OwnerID: uintPtr(7),
		Limit:   2,
		Offset:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 1)
	assert.Equal(t, uint(5), orders[0].ID)
	assert.Equal(t, uintPtr(9), orders[0].AssignedTechnicianID)
	assert.Equal(t, []string{"a.jpg"}, orders[0].Images)
	assert.True(t, orders[0].IsUrgent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_Unfiltered(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM Orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM Orders ORDER BY createdAt DESC, id DESC$`).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	orders, total, err := repo.List(context.Background(), domain.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateState_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE Orders SET status = ?, assignedTechnicianId = ?, updatedAt = ? WHERE id = ?`)).
		WithArgs("cancelled", nil, sqlmock.AnyArg(), uint(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = repo.UpdateState(context.Background(), tx, &domain.Order{ID: 99, Status: domain.OrderStatusCancelled, UpdatedAt: time.Now()})
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Integration Tests

func insertTestOrder(t *testing.T, db *sql.DB, order *domain.Order) uint {
	t.Helper()

	repo := NewMySQLOrderRepository(db)
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	order.CreatedAt, order.UpdatedAt = now, now
	id, err := repo.Insert(context.Background(), tx, order)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	return id
}

func TestOrderRepository_InsertAndFindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	id := insertTestOrder(t, db, &domain.Order{
		OwnerID:      1,
		Status:       domain.OrderStatusPending,
		DeviceType:   "laptop",
		DeviceBrand:  "Acme",
		ContactPhone: "5550001",
		IsUrgent:     true,
		Images:       []string{"/uploads/a.png"},
	})

	order, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, uint(1), order.OwnerID)
	assert.Nil(t, order.AssignedTechnicianID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "laptop", order.DeviceType)
	assert.True(t, order.IsUrgent)
	assert.Equal(t, []string{"/uploads/a.png"}, order.Images)
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	order, err := repo.FindByID(context.Background(), uint(9999))
	assert.Error(t, err)
	assert.Nil(t, order)

	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_UpdateState_Rollback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	id := insertTestOrder(t, db, &domain.Order{OwnerID: 1, Status: domain.OrderStatusPending})

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	locked, err := repo.FindByIDForUpdate(context.Background(), tx, id)
	require.NoError(t, err)
	locked.Status = domain.OrderStatusAssigned
	locked.AssignedTechnicianID = uintPtr(4)
	locked.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateState(context.Background(), tx, locked))
	require.NoError(t, tx.Rollback())

	order, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Nil(t, order.AssignedTechnicianID)
}

func TestOrderRepository_List_Scoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	insertTestOrder(t, db, &domain.Order{OwnerID: 1, Status: domain.OrderStatusPending})
	insertTestOrder(t, db, &domain.Order{OwnerID: 1, Status: domain.OrderStatusAssigned, AssignedTechnicianID: uintPtr(9)})
	insertTestOrder(t, db, &domain.Order{OwnerID: 2, Status: domain.OrderStatusAssigned, AssignedTechnicianID: uintPtr(9)})

	orders, total, err := repo.List(context.Background(), domain.OrderFilter{OwnerID: uintPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, orders, 2)

	orders, total, err = repo.List(context.Background(), domain.OrderFilter{AssigneeID: uintPtr(9), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, orders, 1)
}
