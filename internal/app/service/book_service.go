package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"book_market/internal/common"
	"book_market/internal/domain/model"
	"book_market/internal/domain/repository"
	"book_market/internal/platform/logging"
	"book_market/internal/platform/storage"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type BookService struct {
	bookRepo repository.BookRepository
	blobs    storage.BlobStore
	cleaner  CoverCleaner
}

func NewBookService(bookRepo repository.BookRepository, blobs storage.BlobStore, cleaner CoverCleaner) *BookService {
	return &BookService{bookRepo: bookRepo, blobs: blobs, cleaner: cleaner}
}

// CoverUpload is an already vetted image file: Ext is one of the accepted
// extensions and ContentType matches the sniffed bytes.
type CoverUpload struct {
	Ext         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Price and stock bounds follow the NUMERIC(12,2) and INTEGER columns.
type CreateBookRequest struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" validate:"required,gte=0,lte=9999999999.99"`
	Stock       *int     `json:"stock" validate:"required,gte=0,lte=2147483647"`
}

type UpdateBookRequest struct {
	Title       *string  `json:"title" validate:"omitnil,min=1"`
	Author      *string  `json:"author" validate:"omitnil,min=1"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0,lte=9999999999.99"`
	Stock       *int     `json:"stock" validate:"omitnil,gte=0,lte=2147483647"`
}

func (s *BookService) Search(ctx context.Context, query, requesterID string) ([]model.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("invalid search query: %w", common.ErrBadRequest)
	}
	return s.bookRepo.Search(ctx, query, requesterID)
}

func (s *BookService) Create(ctx context.Context, ownerID string, req CreateBookRequest, cover *CoverUpload) (*model.Book, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	book := &model.Book{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Author:      req.Author,
		Description: strings.TrimSpace(req.Description),
		Price:       *req.Price,
		Stock:       *req.Stock,
		AddedBy:     ownerID,
	}

	if cover != nil {
		ref, err := s.saveCover(ctx, book.Title, cover)
		if err != nil {
			return nil, err
		}
		book.CoverImage = &ref
	}

	if err := s.bookRepo.Create(ctx, nil, book); err != nil {
		if book.CoverImage != nil {
			s.discardCover(ctx, *book.CoverImage)
		}
		return nil, err
	}
	return book, nil
}

func (s *BookService) Get(ctx context.Context, id string) (*model.BookDetails, error) {
	if err := parseID(id, "book"); err != nil {
		return nil, err
	}
	return s.bookRepo.FindDetailsByID(ctx, id)
}

func (s *BookService) ListOwned(ctx context.Context, ownerID string) ([]model.Book, error) {
	return s.bookRepo.ListByOwner(ctx, ownerID)
}

// Update merges the fields present in req into a listing owned by ownerID.
func (s *BookService) Update(ctx context.Context, id, ownerID string, req UpdateBookRequest, cover *CoverUpload) (*model.Book, error) {
	if err := parseID(id, "book"); err != nil {
		return nil, err
	}
	existing, err := s.ownedBook(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	req.Title = trimPtr(req.Title)
	req.Author = trimPtr(req.Author)
	req.Description = trimPtr(req.Description)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	patch := model.BookPatch{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if cover != nil {
		title := existing.Title
		if patch.Title != nil {
			title = *patch.Title
		}
		ref, err := s.saveCover(ctx, title, cover)
		if err != nil {
			return nil, err
		}
		patch.CoverImage = &ref
	}

	if patch.IsEmpty() {
		return existing, nil
	}

	updated, err := s.bookRepo.Update(ctx, id, patch)
	if err != nil {
		if patch.CoverImage != nil {
			s.discardCover(ctx, *patch.CoverImage)
		}
		return nil, err
	}
	if patch.CoverImage != nil && existing.CoverImage != nil {
		s.discardCover(ctx, *existing.CoverImage)
	}
	return updated, nil
}

func (s *BookService) Delete(ctx context.Context, id, ownerID string) error {
	if err := parseID(id, "book"); err != nil {
		return err
	}
	existing, err := s.ownedBook(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}
	if existing.CoverImage != nil {
		s.discardCover(ctx, *existing.CoverImage)
	}
	return nil
}

func (s *BookService) ownedBook(ctx context.Context, id, ownerID string) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.AddedBy != ownerID {
		return nil, fmt.Errorf("you can only modify your own listings: %w", common.ErrForbidden)
	}
	return book, nil
}

func (s *BookService) saveCover(ctx context.Context, title string, cover *CoverUpload) (string, error) {
	key := fmt.Sprintf("covers/%s-%s%s", slug.Make(title), uuid.NewString(), cover.Ext)
	ref, err := s.blobs.Save(ctx, key, cover.ContentType, cover.Body, cover.Size)
	if err != nil {
		return "", fmt.Errorf("failed to store cover image: %w", err)
	}
	return ref, nil
}

// discardCover hands ref to the cleanup queue. Enqueue failures are logged,
// not returned.
func (s *BookService) discardCover(ctx context.Context, ref string) {
	if err := s.cleaner.Enqueue(ctx, ref); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("ref", ref).Warn("failed to schedule cover cleanup")
	}
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
