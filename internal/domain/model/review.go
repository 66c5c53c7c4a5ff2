package model

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"` // catalog volume ID, not a listing
	UserID    string    `json:"userId"`
	Username  string    `json:"username"` // copied from the author at write time
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	BookName  string    `json:"bookName"`
	CreatedAt time.Time `json:"createdAt"`
}
