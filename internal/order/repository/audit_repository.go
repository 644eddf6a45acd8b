package repository

import (
	"context"
	"database/sql"
	"fmt"

	"repairdesk/internal/domain"
)

// MySQLAuditRepository stores the append-only order trail. There is no
// update or delete path.
type MySQLAuditRepository struct {
	db *sql.DB
}

func NewMySQLAuditRepository(db *sql.DB) *MySQLAuditRepository {
	return &MySQLAuditRepository{db: db}
}

func (r *MySQLAuditRepository) Append(ctx context.Context, tx *sql.Tx, entry *domain.AuditEntry) (uint, error) {
	query := `INSERT INTO OrderLogs (orderId, actorId, action, description, createdAt) VALUES (?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		entry.OrderID, entry.ActorID, string(entry.Action), entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order log: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLAuditRepository) ListByOrder(ctx context.Context, orderID uint) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, orderId, actorId, action, description, createdAt
		FROM OrderLogs
		WHERE orderId = ?
		ORDER BY createdAt ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var (
			e      domain.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.ActorID, &action, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order log row: %w", err)
		}
		e.Action = domain.AuditAction(action)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order log rows: %w", err)
	}

	return entries, nil
}
