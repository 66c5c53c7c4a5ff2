package repository

import (
	"context"
	"database/sql"
	"fmt"

	"book_market/internal/domain/model"
)

type PurchaseRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *model.Purchase) error
	ListByBuyer(ctx context.Context, buyerID string) ([]model.Purchase, error)
}

type pgPurchaseRepository struct {
	db *sql.DB
}

func NewPgPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &pgPurchaseRepository{db: db}
}

func (r *pgPurchaseRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	query := `INSERT INTO purchases (id, book_id, buyer_id, book_title, quantity, unit_price)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		p.ID, p.BookID, p.BuyerID, p.BookTitle, p.Quantity, p.UnitPrice,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgPurchaseRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPurchaseRepository) ListByBuyer(ctx context.Context, buyerID string) ([]model.Purchase, error) {
	query := `SELECT id, book_id, buyer_id, book_title, quantity, unit_price, created_at
	          FROM purchases
	          WHERE buyer_id = $1
	          ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("pgPurchaseRepository.ListByBuyer: %w", err)
	}
	defer rows.Close()

	purchases := []model.Purchase{}
	for rows.Next() {
		var p model.Purchase
		var bookID sql.NullString
		if err := rows.Scan(&p.ID, &bookID, &p.BuyerID, &p.BookTitle, &p.Quantity, &p.UnitPrice, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgPurchaseRepository.ListByBuyer scan: %w", err)
		}
		if bookID.Valid {
			p.BookID = &bookID.String
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPurchaseRepository.ListByBuyer rows: %w", err)
	}
	return purchases, nil
}
