package userstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	youlyauth "github.com/am-IRh/youly-auth"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

type userRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
}

func (r userRow) toUser() youlyauth.User {
	return youlyauth.User{
		ID:           strconv.FormatInt(r.ID, 10),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.Password,
		CreatedAt:    r.CreatedAt,
	}
}

// Postgres stores users in a Postgres table:
//
//	CREATE TABLE users (
//	    id         BIGSERIAL PRIMARY KEY,
//	    name       TEXT NOT NULL,
//	    email      TEXT NOT NULL UNIQUE,
//	    password   TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open sqlx handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// FindByEmail looks up a user by email.
func (p *Postgres) FindByEmail(ctx context.Context, email string) (youlyauth.User, error) {
	var row userRow
	err := p.db.GetContext(ctx, &row,
		`SELECT id, name, email, password, created_at FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return youlyauth.User{}, youlyauth.ErrUserNotFound
		}
		return youlyauth.User{}, err
	}
	return row.toUser(), nil
}

// FindByID looks up a user by id.
func (p *Postgres) FindByID(ctx context.Context, id string) (youlyauth.User, error) {
	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return youlyauth.User{}, youlyauth.ErrUserNotFound
	}

	var row userRow
	err = p.db.GetContext(ctx, &row,
		`SELECT id, name, email, password, created_at FROM users WHERE id = $1`, numeric)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return youlyauth.User{}, youlyauth.ErrUserNotFound
		}
		return youlyauth.User{}, err
	}
	return row.toUser(), nil
}

// Insert adds a user. A unique-constraint violation on email is reported as
// ErrAccountExists.
func (p *Postgres) Insert(ctx context.Context, name, email, hashedPassword string) (youlyauth.User, error) {
	var row userRow
	err := p.db.GetContext(ctx, &row,
		`INSERT INTO users (name, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, email, password, created_at`,
		name, email, hashedPassword)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return youlyauth.User{}, youlyauth.ErrAccountExists
		}
		return youlyauth.User{}, err
	}
	return row.toUser(), nil
}

// UpdatePassword replaces the stored password hash.
func (p *Postgres) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return youlyauth.ErrUserNotFound
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`, hashedPassword, numeric)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return youlyauth.ErrUserNotFound
	}
	return nil
}
