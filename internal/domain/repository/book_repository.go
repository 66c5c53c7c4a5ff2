package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"book_market/internal/common"
	"book_market/internal/domain/model"
)

type BookRepository interface {
	Create(ctx context.Context, tx *sql.Tx, book *model.Book) error
	FindByID(ctx context.Context, id string) (*model.Book, error)
	FindDetailsByID(ctx context.Context, id string) (*model.BookDetails, error)
	Search(ctx context.Context, query, excludeOwnerID string) ([]model.Book, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error)
	Update(ctx context.Context, id string, patch model.BookPatch) (*model.Book, error)
	Delete(ctx context.Context, id string) error
	// DecrementStock removes qty units only when that many are in stock and
	// returns the listing as it is after the decrement.
	DecrementStock(ctx context.Context, tx *sql.Tx, id string, qty int) (*model.Book, error)
}

type pgBookRepository struct {
	db *sql.DB
}

func NewPgBookRepository(db *sql.DB) BookRepository {
	return &pgBookRepository{db: db}
}

const bookColumns = `id, title, author, description, price, stock, cover_image, added_by, created_at, updated_at`

func scanBook(row rowScanner) (*model.Book, error) {
	var b model.Book
	var cover sql.NullString
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Price, &b.Stock,
		&cover, &b.AddedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if cover.Valid {
		b.CoverImage = &cover.String
	}
	return &b, nil
}

func (r *pgBookRepository) Create(ctx context.Context, tx *sql.Tx, b *model.Book) error {
	query := `INSERT INTO books (id, title, author, description, price, stock, cover_image, added_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at, updated_at`
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		b.ID, b.Title, b.Author, b.Description, b.Price, b.Stock, b.CoverImage, b.AddedBy,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("a book with this title and author already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgBookRepository.Create: %w", err)
	}
	return nil
}

func (r *pgBookRepository) FindByID(ctx context.Context, id string) (*model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBookRepository.FindByID: %w", err)
	}
	return b, nil
}

func (r *pgBookRepository) FindDetailsByID(ctx context.Context, id string) (*model.BookDetails, error) {
	query := `SELECT b.id, b.title, b.author, b.description, b.price, b.stock, b.cover_image,
	                 b.added_by, b.created_at, b.updated_at, u.id, u.username, u.email
	          FROM books b
	          JOIN users u ON u.id = b.added_by
	          WHERE b.id = $1`

	var d model.BookDetails
	var cover sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Title, &d.Author, &d.Description, &d.Price, &d.Stock, &cover,
		&d.AddedBy, &d.CreatedAt, &d.UpdatedAt, &d.Owner.ID, &d.Owner.Username, &d.Owner.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgBookRepository.FindDetailsByID: %w", err)
	}
	if cover.Valid {
		d.CoverImage = &cover.String
	}
	return &d, nil
}

// Search matches query as a literal, case-insensitive substring of the title
// or author. Sold-out listings and those owned by excludeOwnerID are skipped.
func (r *pgBookRepository) Search(ctx context.Context, query, excludeOwnerID string) ([]model.Book, error) {
	q := `SELECT ` + bookColumns + `
	      FROM books
	      WHERE (title ILIKE $1 ESCAPE '\' OR author ILIKE $1 ESCAPE '\')
	        AND stock > 0
	        AND added_by <> $2
	      ORDER BY created_at DESC`
	return r.list(ctx, "Search", q, "%"+escapeLike(query)+"%", excludeOwnerID)
}

func (r *pgBookRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	q := `SELECT ` + bookColumns + ` FROM books WHERE added_by = $1 ORDER BY created_at DESC`
	return r.list(ctx, "ListByOwner", q, ownerID)
}

func (r *pgBookRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgBookRepository.%s: %w", op, err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("pgBookRepository.%s scan: %w", op, err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgBookRepository.%s rows: %w", op, err)
	}
	return books, nil
}

// Update writes only the fields set on patch.
func (r *pgBookRepository) Update(ctx context.Context, id string, patch model.BookPatch) (*model.Book, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Author != nil {
		set("author", *patch.Author)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.CoverImage != nil {
		set("cover_image", *patch.CoverImage)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), bookColumns)

	b, err := scanBook(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		if common.IsUniqueViolation(err) {
			return nil, fmt.Errorf("a book with this title and author already exists: %w", common.ErrConflict)
		}
		return nil, fmt.Errorf("pgBookRepository.Update: %w", err)
	}
	return b, nil
}

func (r *pgBookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgBookRepository.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgBookRepository.Delete rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgBookRepository) DecrementStock(ctx context.Context, tx *sql.Tx, id string, qty int) (*model.Book, error) {
	db := conn(r.db, tx)
	query := `UPDATE books
	          SET stock = stock - $2, updated_at = now()
	          WHERE id = $1 AND stock >= $2
	          RETURNING ` + bookColumns

	b, err := scanBook(db.QueryRowContext(ctx, query, id, qty))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pgBookRepository.DecrementStock: %w", err)
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("pgBookRepository.DecrementStock exists: %w", err)
	}
	if !exists {
		return nil, common.ErrNotFound
	}
	return nil, common.ErrInsufficientStock
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
