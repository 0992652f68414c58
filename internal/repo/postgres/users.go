package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/roadwatch/internal/apperr"
	"github.com/geocoder89/roadwatch/internal/domain/user"
	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersRepo implements the credential store on vze_user/vze_role.
// Every value reaches the server as a bind parameter.
type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func requireUsername(username string) error {
	if username == "" {
		return apperr.Incomplete("The username is required to query the user.")
	}
	return nil
}

func (r *UsersRepo) Exists(ctx context.Context, username string) (bool, error) {
	if err := requireUsername(username); err != nil {
		return false, err
	}

	var count int64

	err := r.prom.ObserveDB("users.exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(username) FROM vze_user WHERE username = $1`,
			username,
		).Scan(&count)
	})

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *UsersRepo) FetchPasswordHash(ctx context.Context, username string) (string, error) {
	if err := requireUsername(username); err != nil {
		return "", err
	}

	var hash string

	err := r.prom.ObserveDB("users.password_hash", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT password FROM vze_user WHERE username = $1`,
			username,
		).Scan(&hash)
	})

	if err != nil {
		return "", notFound(err)
	}

	return hash, nil
}

func (r *UsersRepo) FetchDeactivatedUntil(ctx context.Context, username string) (*time.Time, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}

	var until *time.Time

	err := r.prom.ObserveDB("users.deactivated_until", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT deactivated_until FROM vze_user WHERE username = $1`,
			username,
		).Scan(&until)
	})

	if err != nil {
		return nil, notFound(err)
	}

	return until, nil
}

func (r *UsersRepo) FetchRole(ctx context.Context, username string) (string, error) {
	if err := requireUsername(username); err != nil {
		return "", err
	}

	var role string

	err := r.prom.ObserveDB("users.role", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT r.role_name
			FROM vze_user u
			INNER JOIN vze_role r ON r.id = u.vze_role_id
			WHERE u.username = $1`,
			username,
		).Scan(&role)
	})

	if err != nil {
		return "", notFound(err)
	}

	return role, nil
}

func (r *UsersRepo) FetchProfile(ctx context.Context, username string) (user.Profile, error) {
	if err := requireUsername(username); err != nil {
		return user.Profile{}, err
	}

	var p user.Profile

	err := r.prom.ObserveDB("users.profile", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT u.username, u.first_name, u.last_name, r.role_name, u.created_on
			FROM vze_user u
			INNER JOIN vze_role r ON r.id = u.vze_role_id
			WHERE u.username = $1`,
			username,
		).Scan(&p.Username, &p.FirstName, &p.LastName, &p.RoleName, &p.CreatedOn)
	})

	if err != nil {
		return user.Profile{}, notFound(err)
	}

	return p, nil
}

// Create resolves the role by name inside the insert. An unknown role leaves
// vze_role_id NULL and the NOT NULL constraint rejects the row.
func (r *UsersRepo) Create(ctx context.Context, u user.NewUser) error {
	if err := requireUsername(u.Username); err != nil {
		return err
	}

	return r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO vze_user (username, password, first_name, last_name, vze_role_id)
			VALUES ($1, $2, $3, $4, (SELECT id FROM vze_role WHERE role_name = $5))`,
			u.Username, u.PasswordHash, u.FirstName, u.LastName, u.RoleName,
		)
		return err
	})
}

func (r *UsersRepo) Update(ctx context.Context, username string, upd user.Update) error {
	if err := requireUsername(username); err != nil {
		return err
	}

	if upd.Empty() {
		return apperr.Incomplete("Change user data is incomplete.")
	}

	var sets []string
	var args []interface{}

	argsPosition := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, value)
		argsPosition++
	}

	if upd.PasswordHash != nil {
		add("password", *upd.PasswordHash)
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.RoleName != nil {
		sets = append(sets, fmt.Sprintf("vze_role_id = (SELECT id FROM vze_role WHERE role_name = $%d)", argsPosition))
		args = append(args, *upd.RoleName)
		argsPosition++
	}
	if upd.SetDeactivation {
		// nil clears the column
		add("deactivated_until", upd.DeactivatedUntil)
	}

	query := "UPDATE vze_user SET " + strings.Join(sets, ", ") + fmt.Sprintf(" WHERE username = $%d", argsPosition)
	args = append(args, username)

	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("users.update", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, query, args...)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, username string) error {
	if err := requireUsername(username); err != nil {
		return err
	}

	var tag pgconn.CommandTag

	err := r.prom.ObserveDB("users.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM vze_user WHERE username = $1`, username)
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted the user was already gone
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	return err
}
