package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"book_market/internal/common"
	"book_market/internal/domain/model"
	"book_market/internal/domain/repository"

	"github.com/google/uuid"
)

type ReviewService struct {
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, userRepo repository.UserRepository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, userRepo: userRepo}
}

type CreateReviewRequest struct {
	BookID   string `json:"bookId" validate:"required"`
	Rating   int    `json:"rating" validate:"gte=1,lte=5"`
	Review   string `json:"review" validate:"required"`
	BookName string `json:"bookName" validate:"required"`
}

type CreateReviewResponse struct {
	Message string        `json:"message"`
	Review  *model.Review `json:"review"`
}

// Submit stores a review under the caller's current username.
func (s *ReviewService) Submit(ctx context.Context, userID string, req CreateReviewRequest) (*CreateReviewResponse, error) {
	req.BookID = strings.TrimSpace(req.BookID)
	req.Review = strings.TrimSpace(req.Review)
	req.BookName = strings.TrimSpace(req.BookName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	review := &model.Review{
		ID:       uuid.NewString(),
		BookID:   req.BookID,
		UserID:   user.ID,
		Username: user.Username,
		Rating:   req.Rating,
		Review:   req.Review,
		BookName: req.BookName,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to submit review: %w", err)
	}
	return &CreateReviewResponse{Message: "Review submitted successfully", Review: review}, nil
}

func (s *ReviewService) ListMine(ctx context.Context, userID string) ([]model.Review, error) {
	return s.reviewRepo.ListByUser(ctx, userID)
}

// ListByUsername answers 404 both for an unknown user and for a user with
// no reviews; the message tells them apart.
func (s *ReviewService) ListByUsername(ctx context.Context, username string) ([]model.Review, error) {
	reviews, err := s.reviewRepo.ListByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(reviews) > 0 {
		return reviews, nil
	}
	if _, err := s.userRepo.FindByUsername(ctx, username); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("user %q does not exist: %w", username, common.ErrNotFound)
		}
		return nil, err
	}
	return nil, fmt.Errorf("no reviews found for this user: %w", common.ErrNotFound)
}
