package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"book_market/internal/common"
	"book_market/internal/common/security"
	"book_market/internal/domain/model"
	"book_market/internal/domain/repository"
	"book_market/internal/platform/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type PurchaseService struct {
	userRepo      repository.UserRepository
	bookRepo      repository.BookRepository
	purchaseRepo  repository.PurchaseRepository
	tx            repository.TxRunner
	intents       IntentStore
	intentTTL     time.Duration
	requireIntent bool
}

func NewPurchaseService(
	userRepo repository.UserRepository,
	bookRepo repository.BookRepository,
	purchaseRepo repository.PurchaseRepository,
	tx repository.TxRunner,
	intents IntentStore,
	intentTTL time.Duration,
	requireIntent bool,
) *PurchaseService {
	return &PurchaseService{
		userRepo:      userRepo,
		bookRepo:      bookRepo,
		purchaseRepo:  purchaseRepo,
		tx:            tx,
		intents:       intents,
		intentTTL:     intentTTL,
		requireIntent: requireIntent,
	}
}

type ValidatePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

type ValidatePasswordResponse struct {
	Message     string    `json:"message"`
	IntentToken string    `json:"intentToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type BuyRequest struct {
	Quantity    int    `json:"quantity"`
	IntentToken string `json:"intentToken"`
}

type BuyResponse struct {
	Message  string          `json:"message"`
	Stock    int             `json:"stock"`
	Purchase *model.Purchase `json:"purchase"`
}

// ValidatePassword re-checks the caller's password and issues a single use
// purchase intent.
func (s *PurchaseService) ValidatePassword(ctx context.Context, userID string, req ValidatePasswordRequest) (*ValidatePasswordResponse, error) {
	if req.Password == "" {
		return nil, fmt.Errorf("password is required: %w", common.ErrBadRequest)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid password: %w", common.ErrUnauthorized)
	}

	intent, err := s.intents.Issue(ctx, userID, s.intentTTL)
	if err != nil {
		return nil, err
	}
	return &ValidatePasswordResponse{
		Message:     "Password validated successfully.",
		IntentToken: intent.Token,
		ExpiresAt:   intent.ExpiresAt,
	}, nil
}

// Buy takes req.Quantity units (default 1) of a listing. The decrement and the
// purchase record share one transaction, and the intent is consumed only when
// both succeed.
func (s *PurchaseService) Buy(ctx context.Context, userID, bookID string, req BuyRequest) (*BuyResponse, error) {
	if err := parseID(bookID, "book"); err != nil {
		return nil, err
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", common.ErrBadRequest)
	}

	if s.requireIntent {
		if req.IntentToken == "" {
			return nil, fmt.Errorf("password confirmation required before purchase: %w", common.ErrForbidden)
		}
		if err := s.intents.Check(ctx, req.IntentToken, userID); err != nil {
			return nil, err
		}
	}

	var purchase *model.Purchase
	var remaining int
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		book, err := s.bookRepo.DecrementStock(ctx, tx, bookID, qty)
		if err != nil {
			return err
		}
		remaining = book.Stock
		purchase = &model.Purchase{
			ID:        uuid.NewString(),
			BookID:    &book.ID,
			BuyerID:   userID,
			BookTitle: book.Title,
			Quantity:  qty,
			UnitPrice: book.Price,
		}
		if err := s.purchaseRepo.Create(ctx, tx, purchase); err != nil {
			return err
		}
		// Last step before commit, so a failed purchase leaves the intent usable.
		if s.requireIntent {
			return s.intents.Consume(ctx, req.IntentToken, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"book_id":  bookID,
		"quantity": qty,
		"stock":    remaining,
	}).Info("purchase completed")

	return &BuyResponse{
		Message:  "Purchase successful. Stock updated.",
		Stock:    remaining,
		Purchase: purchase,
	}, nil
}

func (s *PurchaseService) ListPurchases(ctx context.Context, userID string) ([]model.Purchase, error) {
	return s.purchaseRepo.ListByBuyer(ctx, userID)
}
