package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairdesk/internal/domain"
	"repairdesk/internal/testutil"
)

func TestAuditRepository_Append_PropagatesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO OrderLogs`)).
		WithArgs(uint(1), uint(2), "note_added", "hello", sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	_, err = repo.Append(context.Background(), tx, &domain.AuditEntry{
		OrderID: 1, ActorID: 2, Action: domain.AuditActionNoteAdded, Description: "hello", CreatedAt: time.Now(),
	})
	assert.ErrorContains(t, err, "inserting order log")

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLAuditRepository(db)
	orderID := insertTestOrder(t, db, &domain.Order{OwnerID: 1, Status: domain.OrderStatusPending})

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	for _, e := range []domain.AuditEntry{
		{OrderID: orderID, ActorID: 1, Action: domain.AuditActionCreated, Description: "order created", CreatedAt: now},
		{OrderID: orderID, ActorID: 1, Action: domain.AuditActionNoteAdded, Description: "please hurry", CreatedAt: now},
	} {
		_, err := repo.Append(context.Background(), tx, &e)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	entries, err := repo.ListByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditActionCreated, entries[0].Action)
	assert.Equal(t, "please hurry", entries[1].Description)
}
