package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tripmate/internal/model"
	"github.com/iliyamo/tripmate/internal/utils"
)

var (
	qExisting   = regexp.QuoteMeta("SELECT id FROM users WHERE email=? OR full_name=? LIMIT 1")
	qInsert     = regexp.QuoteMeta("INSERT INTO users (id, full_name, email, password_hash) VALUES (?,?,?,?)")
	qPublicByID = regexp.QuoteMeta("SELECT id,full_name,email,created_at,updated_at FROM users WHERE id=? LIMIT 1")
	qByEmail    = regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE email=? LIMIT 1")
	qByID       = regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE id=? LIMIT 1")
	qSetRefresh = regexp.QuoteMeta("UPDATE users SET refresh_token=? WHERE id=?")
	qRotate     = regexp.QuoteMeta("UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?")
	qSetHash    = regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")
)

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(db, bcrypt.MinCost), mock
}

// bcryptOf matches a password_hash argument that verifies against plain
// without being equal to it.
type bcryptOf string

func (b bcryptOf) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s != string(b) && utils.VerifyPassword(s, string(b))
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "full_name", "email", "password_hash", "refresh_token", "created_at", "updated_at"})
}

func TestUserRepo_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("hashes password and returns sanitized record", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(qExisting).WithArgs("a@x.com", "A").WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(qInsert).
			WithArgs(sqlmock.AnyArg(), "A", "a@x.com", bcryptOf("pw123456")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(qPublicByID).WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "created_at", "updated_at"}).
				AddRow("u-1", "A", "a@x.com", now, now))

		u, err := repo.Create(ctx, " A ", " A@X.com ", "pw123456")
		require.NoError(t, err)
		assert.Equal(t, "u-1", u.ID)
		assert.Equal(t, "a@x.com", u.Email)
		assert.Empty(t, u.PasswordHash)
		assert.Nil(t, u.RefreshToken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing email or name is a conflict", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(qExisting).WithArgs("a@x.com", "A").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-1"))

		_, err := repo.Create(ctx, "A", "a@x.com", "pw123456")
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate key on insert is a conflict", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(qExisting).WithArgs("a@x.com", "A").WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(qInsert).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x.com'"})

		_, err := repo.Create(ctx, "A", "a@x.com", "pw123456")
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate full name on insert is a conflict", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(qExisting).WithArgs("b@x.com", "A").WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(qInsert).
			WithArgs(sqlmock.AnyArg(), "A", "b@x.com", bcryptOf("pw123456")).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'A' for key 'users.uq_users_full_name'"})

		_, err := repo.Create(ctx, "A", "b@x.com", "pw123456")
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database failure is wrapped", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)

		mock.ExpectQuery(qExisting).WillReturnError(errors.New("connection refused"))

		_, err := repo.Create(ctx, "A", "a@x.com", "pw123456")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUserRepo_FindByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("found with refresh token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(qByEmail).WithArgs("a@x.com").
			WillReturnRows(userRows().AddRow("u-1", "A", "a@x.com", "$2a$04$hash", "rt-1", now, now))

		u, err := repo.FindByEmail(ctx, "A@x.com")
		require.NoError(t, err)
		assert.Equal(t, "$2a$04$hash", u.PasswordHash)
		require.NotNil(t, u.RefreshToken)
		assert.Equal(t, "rt-1", *u.RefreshToken)
	})

	t.Run("null refresh token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(qByEmail).WithArgs("a@x.com").
			WillReturnRows(userRows().AddRow("u-1", "A", "a@x.com", "$2a$04$hash", nil, now, now))

		u, err := repo.FindByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Nil(t, u.RefreshToken)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(qByEmail).WithArgs("ghost@x.com").WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByEmail(ctx, "ghost@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUserRepo_FindByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(qByID).WithArgs("u-404").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "u-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_FindPublicByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(qPublicByID).WithArgs("u-404").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPublicByID(context.Background(), "u-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_SetRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("stores token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qSetRefresh).WithArgs("rt-2", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))

		tok := "rt-2"
		require.NoError(t, repo.SetRefreshToken(ctx, "u-1", &tok))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil clears token", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qSetRefresh).WithArgs(nil, "u-1").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SetRefreshToken(ctx, "u-1", nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qSetRefresh).WithArgs(nil, "u-404").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SetRefreshToken(ctx, "u-404", nil), ErrNotFound)
	})
}

func TestUserRepo_RotateRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("current token is swapped", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qRotate).WithArgs("rt-2", "u-1", "rt-1").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RotateRefreshToken(ctx, "u-1", "rt-1", "rt-2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale token matches no row", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qRotate).WithArgs("rt-3", "u-1", "rt-1").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.RotateRefreshToken(ctx, "u-1", "rt-1", "rt-3"), ErrStaleRefreshToken)
	})

	t.Run("driver error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(qRotate).WillReturnError(errors.New("deadlock"))

		err := repo.RotateRefreshToken(ctx, "u-1", "rt-1", "rt-3")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStaleRefreshToken)
	})
}

func TestUserRepo_SetPasswordHash(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(qSetHash).WithArgs("$2a$04$new", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetPasswordHash(context.Background(), "u-1", "$2a$04$new"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_PasswordHelpers(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	hash, err := repo.HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	u := model.User{PasswordHash: hash}
	assert.True(t, repo.VerifyPassword(u, "pw123456"))
	assert.False(t, repo.VerifyPassword(u, "wrong-password"))
}
