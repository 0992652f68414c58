package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Hasher interface {
	Hash(plain string) (string, error)
}

type seedUser struct {
	username string
	role     string
}

var seedUsers = []seedUser{
	{username: "admin", role: user.RoleAdmin},
	{username: "inspector", role: user.RoleInspector},
}

// EnsureSeedUsers inserts one admin and one inspector sharing password.
// Existing rows are left alone; an empty password skips seeding.
func EnsureSeedUsers(ctx context.Context, pool *pgxpool.Pool, hasher Hasher, password string) error {
	if password == "" {
		return nil
	}

	for _, su := range seedUsers {
		hash, err := hasher.Hash(password)

		if err != nil {
			return err
		}

		_, err = pool.Exec(ctx,
			`INSERT INTO vze_user (username, password, first_name, last_name, vze_role_id)
			VALUES ($1, $2, $3, $4, (SELECT id FROM vze_role WHERE role_name = $5))
			ON CONFLICT (username) DO NOTHING`,
			su.username, hash, "Seed", su.username, su.role,
		)

		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.username, err)
		}
	}

	return nil
}
