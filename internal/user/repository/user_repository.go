package repository

import (
	"context"
	"database/sql"
	"fmt"

	"repairdesk/internal/domain"
	"repairdesk/internal/errors"
	"repairdesk/internal/infrastructure/mysql"
)

const userColumns = `id, phone, name, passwordHash, role, isActive, createdAt, updatedAt`

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := row.Scan(
		&user.ID, &user.Phone, &user.Name, &user.PasswordHash,
		&role, &user.Active, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func (r *MySQLUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM Users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("user with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindByIDForShare reads the user inside tx with a shared lock, holding off
// role or activity changes until tx ends.
func (r *MySQLUserRepository) FindByIDForShare(ctx context.Context, tx *sql.Tx, id uint) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM Users WHERE id = ? FOR SHARE`

	user, err := scanUser(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("user with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("locking user by id: %w", err)
	}

	return user, nil
}

func (r *MySQLUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM Users WHERE phone = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, phone))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by phone: %w", err)
	}

	return user, nil
}

// Insert returns ConflictError when the phone number is already registered.
func (r *MySQLUserRepository) Insert(ctx context.Context, user *domain.User) (uint, error) {
	query := `
		INSERT INTO Users (phone, name, passwordHash, role, isActive, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Phone, user.Name, user.PasswordHash, string(user.Role),
		user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, errors.NewConflictError("phone number is already registered")
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}
