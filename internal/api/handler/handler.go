package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"book_market/internal/api/middleware"
	"book_market/internal/app/service"
	"book_market/internal/common"
	"book_market/internal/domain/model"
	"book_market/internal/platform/logging"
)

type AuthService interface {
	Signup(ctx context.Context, req service.SignupRequest) (*service.AuthResponse, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResponse, error)
}

type BookService interface {
	Search(ctx context.Context, query, requesterID string) ([]model.Book, error)
	Create(ctx context.Context, ownerID string, req service.CreateBookRequest, cover *service.CoverUpload) (*model.Book, error)
	Get(ctx context.Context, id string) (*model.BookDetails, error)
	ListOwned(ctx context.Context, ownerID string) ([]model.Book, error)
	Update(ctx context.Context, id, ownerID string, req service.UpdateBookRequest, cover *service.CoverUpload) (*model.Book, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type PurchaseService interface {
	ValidatePassword(ctx context.Context, userID string, req service.ValidatePasswordRequest) (*service.ValidatePasswordResponse, error)
	Buy(ctx context.Context, userID, bookID string, req service.BuyRequest) (*service.BuyResponse, error)
	ListPurchases(ctx context.Context, userID string) ([]model.Purchase, error)
}

type ReviewService interface {
	Submit(ctx context.Context, userID string, req service.CreateReviewRequest) (*service.CreateReviewResponse, error)
	ListMine(ctx context.Context, userID string) ([]model.Review, error)
	ListByUsername(ctx context.Context, username string) ([]model.Review, error)
}

type CatalogService interface {
	Search(ctx context.Context, query string) ([]model.CatalogVolume, error)
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	common.RespondWithServiceError(w, logging.FromContext(r.Context()), err)
}

// requireUser reads the id stored by middleware.Authenticator.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return "", false
	}
	return userID, true
}

// decodeJSON decodes the body into dst. An empty body is allowed when
// optional is set.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid request payload: %w", common.ErrBadRequest)
}
