package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration database. The test is skipped when it is
// not reachable. TEST_DB_DSN overrides the local default.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/repairdesk_test?parseTime=true&loc=UTC"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"OrderLogs", "Orders", "Users"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema the repositories expect.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createUsersTable := `
	CREATE TABLE IF NOT EXISTS Users (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		phone VARCHAR(30) NOT NULL UNIQUE,
		name VARCHAR(100) NOT NULL DEFAULT '',
		passwordHash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		ownerId INT UNSIGNED NOT NULL,
		assignedTechnicianId INT UNSIGNED NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		deviceType VARCHAR(100) NOT NULL DEFAULT '',
		deviceBrand VARCHAR(100) NOT NULL DEFAULT '',
		deviceModel VARCHAR(100) NOT NULL DEFAULT '',
		serviceType VARCHAR(100) NOT NULL DEFAULT '',
		description TEXT,
		contactName VARCHAR(100) NOT NULL DEFAULT '',
		contactPhone VARCHAR(30) NOT NULL DEFAULT '',
		address VARCHAR(255) NOT NULL DEFAULT '',
		isUrgent TINYINT(1) NOT NULL DEFAULT 0,
		images JSON NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_owner (ownerId),
		INDEX idx_technician (assignedTechnicianId),
		INDEX idx_status (status)
	)`

	createOrderLogsTable := `
	CREATE TABLE IF NOT EXISTS OrderLogs (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		actorId INT UNSIGNED NOT NULL,
		action VARCHAR(30) NOT NULL,
		description TEXT NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (orderId) REFERENCES Orders(id),
		INDEX idx_order (orderId)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"Users", createUsersTable},
		{"Orders", createOrdersTable},
		{"OrderLogs", createOrderLogsTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
