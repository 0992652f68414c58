package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS vze_role (
		id SERIAL PRIMARY KEY,
		role_name VARCHAR(20) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vze_user (
		id SERIAL PRIMARY KEY,
		username VARCHAR(30) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		first_name VARCHAR(50) NOT NULL,
		last_name VARCHAR(50) NOT NULL,
		created_on TIMESTAMP NOT NULL DEFAULT (NOW() AT TIME ZONE 'utc'),
		deactivated_until TIMESTAMP NULL DEFAULT NULL,
		vze_role_id INTEGER NOT NULL,
		CONSTRAINT fk_role
			FOREIGN KEY (vze_role_id)
			REFERENCES vze_role (id)
	)`,
}

// EnsureSchema creates the account tables and the two well-known roles.
// Safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, role := range []string{user.RoleAdmin, user.RoleInspector} {
		batch.Queue(`INSERT INTO vze_role (role_name) VALUES ($1) ON CONFLICT (role_name) DO NOTHING`, role)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	return tx.Commit(ctx)
}
