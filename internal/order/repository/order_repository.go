package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"repairdesk/internal/domain"
	"repairdesk/internal/errors"
)

const orderColumns = `id, ownerId, assignedTechnicianId, status, deviceType, deviceBrand, deviceModel,
		       serviceType, description, contactName, contactPhone, address, isUrgent, images,
		       createdAt, updatedAt`

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order    domain.Order
		assignee sql.NullInt64
		status   string
		images   []byte
	)
	err := row.Scan(
		&order.ID, &order.OwnerID, &assignee, &status,
		&order.DeviceType, &order.DeviceBrand, &order.DeviceModel,
		&order.ServiceType, &order.Description,
		&order.ContactName, &order.ContactPhone, &order.Address,
		&order.IsUrgent, &images, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatus(status)
	if assignee.Valid {
		id := uint(assignee.Int64)
		order.AssignedTechnicianID = &id
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &order.Images); err != nil {
			return nil, fmt.Errorf("decoding order images: %w", err)
		}
	}

	return &order, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

func nullableID(id *uint) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (uint, error) {
	images, err := encodeImages(order.Images)
	if err != nil {
		return 0, fmt.Errorf("encoding order images: %w", err)
	}

	query := `
		INSERT INTO Orders (ownerId, assignedTechnicianId, status, deviceType, deviceBrand, deviceModel,
		                    serviceType, description, contactName, contactPhone, address, isUrgent, images,
		                    createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		order.OwnerID, nullableID(order.AssignedTechnicianID), string(order.Status),
		order.DeviceType, order.DeviceBrand, order.DeviceModel,
		order.ServiceType, order.Description,
		order.ContactName, order.ContactPhone, order.Address,
		order.IsUrgent, images, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

// FindByIDForUpdate locks the row for the rest of tx.
func (r *MySQLOrderRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ? FOR UPDATE`

	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("locking order by id: %w", err)
	}

	return order, nil
}

// UpdateState writes status and assignee together so the pair never
// diverges between statements.
func (r *MySQLOrderRepository) UpdateState(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `UPDATE Orders SET status = ?, assignedTechnicianId = ?, updatedAt = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query,
		string(order.Status), nullableID(order.AssignedTechnicianID), order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order state: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", order.ID))
	}

	return nil
}

// List returns one page of orders matching filter, newest first, and the
// total number of matching rows.
func (r *MySQLOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.OwnerID != nil {
		conditions = append(conditions, "ownerId = ?")
		args = append(args, *filter.OwnerID)
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignedTechnicianId = ?")
		args = append(args, *filter.AssigneeID)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM Orders` + where + ` ORDER BY createdAt DESC, id DESC`
	pageArgs := args
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		pageArgs = append(append([]interface{}{}, args...), filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating order rows: %w", err)
	}

	return orders, total, nil
}
