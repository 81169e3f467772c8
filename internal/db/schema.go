package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists the tables the ledger needs, in creation order.
var Tables = []string{"spots", "users", "parking_sessions"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS spots (
		id INT AUTO_INCREMENT PRIMARY KEY,
		spot_number INT NOT NULL,
		floor INT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_spots_floor_number (floor, spot_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		login VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'OPERATOR',
		first_name VARCHAR(64) NOT NULL DEFAULT '',
		last_name VARCHAR(64) NOT NULL DEFAULT '',
		balance DECIMAL(10,2) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_login (login)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id INT AUTO_INCREMENT PRIMARY KEY,
		spot_id INT NOT NULL,
		user_id INT NULL,
		plate_number VARCHAR(32) NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		payment_status VARCHAR(8) NOT NULL DEFAULT 'UNPAID',
		total_cost DECIMAL(10,2) NULL,
		payment_token VARCHAR(64) NOT NULL,
		UNIQUE KEY uq_sessions_token (payment_token),
		KEY idx_sessions_spot_exit (spot_id, exit_time),
		KEY idx_sessions_user_exit (user_id, exit_time),
		CONSTRAINT fk_sessions_spot FOREIGN KEY (spot_id) REFERENCES spots (id),
		CONSTRAINT fk_sessions_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", Tables[i], err)
		}
	}
	return nil
}

// SeedSpots provisions floors*perFloor spots when the spots table is empty.
func SeedSpots(ctx context.Context, db *sql.DB, floors, perFloor int) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count spots: %w", err)
	}
	if count > 0 || floors <= 0 || perFloor <= 0 {
		return 0, nil
	}

	created := 0
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		created = 0
		for f := 0; f < floors; f++ {
			for n := 1; n <= perFloor; n++ {
				if _, err := tx.ExecContext(ctx, `INSERT INTO spots (spot_number, floor) VALUES (?, ?)`, f*perFloor+n, f); err != nil {
					return fmt.Errorf("insert spot: %w", err)
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
