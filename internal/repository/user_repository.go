package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/iliyamo/tripmate/internal/model"
	"github.com/iliyamo/tripmate/internal/utils"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

const userColumns = "id,full_name,email,password_hash,refresh_token,created_at,updated_at"

// UserRepo is the credential store.  It owns the users table: identity
// fields, the bcrypt password hash and the single current refresh token.
// Every method is one round trip (Create is a lookup, an insert and a
// read-back) and nothing is cached in process.
type UserRepo struct {
	DB   *sql.DB
	Cost int // bcrypt cost
}

func NewUserRepo(db *sql.DB, cost int) *UserRepo { return &UserRepo{DB: db, Cost: cost} }

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a user with a freshly hashed password and returns the
// stored record without its password hash or refresh token.  It fails with
// ErrConflict if a user with the same email or full name already exists;
// the unique keys on both columns catch registrations racing past the
// lookup.
func (r *UserRepo) Create(ctx context.Context, fullName, email, password string) (model.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = NormalizeEmail(email)

	var existing string
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email=? OR full_name=? LIMIT 1",
		email, fullName).Scan(&existing)
	switch {
	case err == nil:
		return model.User{}, ErrConflict
	case !errors.Is(err, sql.ErrNoRows):
		return model.User{}, oops.Code("USER_CREATE_FAILED").
			With("operation", "check existing user").
			Wrap(err)
	}

	hash, err := utils.HashPassword(password, r.Cost)
	if err != nil {
		return model.User{}, oops.Code("USER_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, full_name, email, password_hash) VALUES (?,?,?,?)",
		id, fullName, email, hash)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return model.User{}, ErrConflict
		}
		return model.User{}, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return r.FindPublicByID(ctx, id)
}

// FindByEmail fetches the full record of a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		NormalizeEmail(email))
	return scanUser(row, "find user by email")
}

// FindByID fetches the full record of a user, including the password hash
// and the current refresh token.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row, "find user by id")
}

// FindPublicByID loads a user without selecting the password hash or the
// refresh token; both fields of the result are left empty.
func (r *UserRepo) FindPublicByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,full_name,email,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.FullName, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, oops.Code("USER_QUERY_FAILED").
			With("operation", "find public user by id").
			Wrap(err)
	}
	return u, nil
}

// SetRefreshToken overwrites the stored refresh token.  A nil token clears
// the session.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=?", nullString(token), id)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "set refresh token").
			Wrap(err)
	}
	return expectOneRow(res, ErrNotFound)
}

// RotateRefreshToken replaces the stored refresh token with next only if it
// still equals presented.  When another request rotated or cleared it first
// the update matches no row and ErrStaleRefreshToken is returned.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, presented, next string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?",
		next, id, presented)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "rotate refresh token").
			Wrap(err)
	}
	return expectOneRow(res, ErrStaleRefreshToken)
}

// SetPasswordHash stores a new password hash.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "set password hash").
			Wrap(err)
	}
	return expectOneRow(res, ErrNotFound)
}

// HashPassword hashes plain with the store's bcrypt cost.
func (r *UserRepo) HashPassword(plain string) (string, error) {
	return utils.HashPassword(plain, r.Cost)
}

// VerifyPassword reports whether plain matches the user's stored hash.
func (r *UserRepo) VerifyPassword(u model.User, plain string) bool {
	return utils.VerifyPassword(u.PasswordHash, plain)
}

func scanUser(row *sql.Row, operation string) (model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
	)
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, oops.Code("USER_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "rows affected").
			Wrap(err)
	}
	if n == 0 {
		return none
	}
	return nil
}
