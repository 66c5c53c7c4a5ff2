package model

import (
	"time"
)

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CoverImage  *string   `json:"coverImage,omitempty"` // blob store reference
	AddedBy     string    `json:"addedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BookDetails is a listing together with its resolved owner.
type BookDetails struct {
	Book
	Owner UserSummary `json:"owner"`
}

// BookPatch carries a partial update; nil fields are left untouched.
type BookPatch struct {
	Title       *string
	Author      *string
	Description *string
	Price       *float64
	Stock       *int
	CoverImage  *string
}

func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil &&
		p.Price == nil && p.Stock == nil && p.CoverImage == nil
}
