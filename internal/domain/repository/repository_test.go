package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"book_market/internal/common"
	"book_market/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestTxRunner_CommitsOnSuccess(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM books`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTxRunner(db).RunInTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, "b-1")
		return err
	})
	require.NoError(t, err)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTxRunner(db).RunInTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestTxRunner_RollsBackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTxRunner(db).RunInTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			panic("kaboom")
		})
	})
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users \(id, name, username, email, hashed_password\)`).
		WithArgs("u-1", "Ada", "ada", "ada@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	u := &model.User{ID: "u-1", Name: "Ada", Username: "ada", Email: "ada@example.com", HashedPassword: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(pgUniqueErr())

	err := repo.Create(context.Background(), &model.User{ID: "u-1"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`SELECT id, name, username, email, hashed_password, created_at FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username", "email", "hashed_password", "created_at"}).
			AddRow("u-1", "Ada", "ada", "ada@example.com", "hash", time.Now()))

	u, err := repo.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
	assert.Equal(t, "hash", u.HashedPassword)
}

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "username", "email", "hashed_password", "created_at"}).
			AddRow("u-1", "Ada", "ada", "ada@example.com", "hash", time.Now()))
	mock.ExpectQuery(`FROM users WHERE username = \$1`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	u, err := repo.FindByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	_, err = repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserRepository_ExistsByEmailOrUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgUserRepository(db)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM users WHERE email = \$1 OR username = \$2\)`).
		WithArgs("ada@example.com", "ada").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByEmailOrUsername(context.Background(), "ada@example.com", "ada")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReviewRepository_CreateAndList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgReviewRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO reviews`).
		WithArgs("r-1", "vol-1", "u-1", "ada", 5, "great", "Dune").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	rv := &model.Review{ID: "r-1", BookID: "vol-1", UserID: "u-1", Username: "ada", Rating: 5, Review: "great", BookName: "Dune"}
	require.NoError(t, repo.Create(context.Background(), rv))
	assert.Equal(t, now, rv.CreatedAt)

	cols := []string{"id", "book_id", "user_id", "username", "rating", "review", "book_name", "created_at"}
	mock.ExpectQuery(`FROM reviews WHERE username = \$1 ORDER BY created_at DESC`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r-2", "vol-2", "u-1", "ada", 3, "ok", "Emma", now).
			AddRow("r-1", "vol-1", "u-1", "ada", 5, "great", "Dune", now.Add(-time.Hour)))

	got, err := repo.ListByUsername(context.Background(), "ada")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r-2", got[0].ID)
	assert.Equal(t, 5, got[1].Rating)
}

func TestReviewRepository_ListByUserEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgReviewRepository(db)

	mock.ExpectQuery(`FROM reviews WHERE user_id = \$1`).
		WithArgs("u-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.ListByUser(context.Background(), "u-9")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPurchaseRepository_CreateInTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgPurchaseRepository(db)
	bookID := "b-1"

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO purchases`).
		WithArgs("p-1", bookID, "u-2", "Dune", 2, 9.5).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	p := &model.Purchase{ID: "p-1", BookID: &bookID, BuyerID: "u-2", BookTitle: "Dune", Quantity: 2, UnitPrice: 9.5}
	err := NewTxRunner(db).RunInTx(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return repo.Create(ctx, tx, p)
	})
	require.NoError(t, err)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestPurchaseRepository_ListByBuyer(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgPurchaseRepository(db)

	cols := []string{"id", "book_id", "buyer_id", "book_title", "quantity", "unit_price", "created_at"}
	mock.ExpectQuery(`FROM purchases\s+WHERE buyer_id = \$1`).
		WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p-1", "b-1", "u-2", "Dune", 1, 9.5, time.Now()).
			AddRow("p-0", nil, "u-2", "Gone Book", 1, 3.0, time.Now()))

	got, err := repo.ListByBuyer(context.Background(), "u-2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].BookID)
	assert.Equal(t, "b-1", *got[0].BookID)
	assert.Nil(t, got[1].BookID)
}
