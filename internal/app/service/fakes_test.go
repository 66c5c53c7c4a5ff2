package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"book_market/internal/common"
	"book_market/internal/common/security"
	"book_market/internal/domain/model"
	"book_market/internal/platform/config"
)

func initTestJWT(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()
	t.Cleanup(func() { config.AppConfig = prev })
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return common.ErrConflict
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	_, err := r.find(func(u *model.User) bool { return u.Email == email || u.Username == username })
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type fakeBookRepo struct {
	mu        sync.Mutex
	books     map[string]*model.Book
	updateErr error
}

func newFakeBookRepo(books ...*model.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: map[string]*model.Book{}}
	for _, b := range books {
		r.books[b.ID] = b
	}
	return r
}

func (r *fakeBookRepo) Create(ctx context.Context, tx *sql.Tx, b *model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.books {
		if existing.Title == b.Title && existing.Author == b.Author {
			return common.ErrConflict
		}
	}
	b.CreatedAt, b.UpdatedAt = time.Now(), time.Now()
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *fakeBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookRepo) FindDetailsByID(ctx context.Context, id string) (*model.BookDetails, error) {
	b, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.BookDetails{Book: *b, Owner: model.UserSummary{ID: b.AddedBy}}, nil
}

func (r *fakeBookRepo) Search(ctx context.Context, query, excludeOwnerID string) ([]model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	out := []model.Book{}
	for _, b := range r.books {
		if b.Stock <= 0 || b.AddedBy == excludeOwnerID {
			continue
		}
		if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Author), q) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeBookRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Book{}
	for _, b := range r.books {
		if b.AddedBy == ownerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBookRepo) Update(ctx context.Context, id string, p model.BookPatch) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	b, ok := r.books[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
	if p.CoverImage != nil {
		b.CoverImage = p.CoverImage
	}
	b.UpdatedAt = time.Now()
	cp := *b
	return &cp, nil
}

func (r *fakeBookRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *fakeBookRepo) DecrementStock(ctx context.Context, tx *sql.Tx, id string, qty int) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if b.Stock < qty {
		return nil, common.ErrInsufficientStock
	}
	b.Stock -= qty
	cp := *b
	return &cp, nil
}

type fakePurchaseRepo struct {
	mu        sync.Mutex
	purchases []model.Purchase
	err       error
}

func (r *fakePurchaseRepo) Create(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	p.CreatedAt = time.Now()
	r.purchases = append(r.purchases, *p)
	return nil
}

func (r *fakePurchaseRepo) ListByBuyer(ctx context.Context, buyerID string) ([]model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Purchase{}
	for _, p := range r.purchases {
		if p.BuyerID == buyerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews []model.Review
}

func (r *fakeReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv.CreatedAt = time.Now()
	r.reviews = append(r.reviews, *rv)
	return nil
}

func (r *fakeReviewRepo) filter(match func(model.Review) bool) []model.Review {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Review{}
	for i := len(r.reviews) - 1; i >= 0; i-- {
		if match(r.reviews[i]) {
			out = append(out, r.reviews[i])
		}
	}
	return out
}

func (r *fakeReviewRepo) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	return r.filter(func(rv model.Review) bool { return rv.UserID == userID }), nil
}

func (r *fakeReviewRepo) ListByUsername(ctx context.Context, username string) ([]model.Review, error) {
	return r.filter(func(rv model.Review) bool { return rv.Username == username }), nil
}

// fakeTx runs fn without a real transaction. rolledBack records fn failures.
type fakeTx struct {
	mu         sync.Mutex
	rolledBack int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	err := fn(ctx, nil)
	if err != nil {
		f.mu.Lock()
		f.rolledBack++
		f.mu.Unlock()
	}
	return err
}

type fakeBlobStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	saveErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{saved: map[string][]byte{}}
}

func (s *fakeBlobStore) Save(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := "uploads/" + key
	s.saved[ref] = data
	return ref, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, ref)
	return nil
}

type fakeCleaner struct {
	mu   sync.Mutex
	refs []string
}

func (c *fakeCleaner) Enqueue(ctx context.Context, ref string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = append(c.refs, ref)
	return nil
}

func pngUpload() *CoverUpload {
	body := []byte("\x89PNG\r\n\x1a\nfake")
	return &CoverUpload{Ext: ".png", ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func ptr[T any](v T) *T { return &v }
