package model

import (
	"time"
)

type Purchase struct {
	ID        string    `json:"id"`
	BookID    *string   `json:"bookId"` // nil once the listing is deleted
	BuyerID   string    `json:"buyerId"`
	BookTitle string    `json:"bookTitle"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	CreatedAt time.Time `json:"createdAt"`
}

// PurchaseIntent proves a fresh password confirmation. It is single use.
type PurchaseIntent struct {
	Token     string    `json:"intentToken"`
	UserID    string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CoverCleanupJob asks the worker to remove a blob no listing references.
type CoverCleanupJob struct {
	Ref      string `json:"ref"`
	Attempts int    `json:"attempts"`
}
