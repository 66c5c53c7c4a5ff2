package repository

import (
	"context"
	"database/sql"
	"fmt"

	"book_market/internal/domain/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	ListByUser(ctx context.Context, userID string) ([]model.Review, error)
	ListByUsername(ctx context.Context, username string) ([]model.Review, error)
}

type pgReviewRepository struct {
	db *sql.DB
}

func NewPgReviewRepository(db *sql.DB) ReviewRepository {
	return &pgReviewRepository{db: db}
}

const reviewColumns = `id, book_id, user_id, username, rating, review, book_name, created_at`

func (r *pgReviewRepository) Create(ctx context.Context, rv *model.Review) error {
	query := `INSERT INTO reviews (id, book_id, user_id, username, rating, review, book_name)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query,
		rv.ID, rv.BookID, rv.UserID, rv.Username, rv.Rating, rv.Review, rv.BookName,
	).Scan(&rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgReviewRepository.Create: %w", err)
	}
	return nil
}

func (r *pgReviewRepository) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, "ListByUser", q, userID)
}

func (r *pgReviewRepository) ListByUsername(ctx context.Context, username string) ([]model.Review, error) {
	q := `SELECT ` + reviewColumns + ` FROM reviews WHERE username = $1 ORDER BY created_at DESC`
	return r.list(ctx, "ListByUsername", q, username)
}

func (r *pgReviewRepository) list(ctx context.Context, op, query string, arg any) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("pgReviewRepository.%s: %w", op, err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.Username, &rv.Rating,
			&rv.Review, &rv.BookName, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgReviewRepository.%s scan: %w", op, err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgReviewRepository.%s rows: %w", op, err)
	}
	return reviews, nil
}
