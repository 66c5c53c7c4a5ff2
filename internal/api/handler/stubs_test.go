package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"book_market/internal/app/service"
	"book_market/internal/common/security"
	"book_market/internal/domain/model"
	"book_market/internal/platform/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/require"
)

const testUserID = "7f0c0f4e-1c2b-4d8e-9d1a-2b3c4d5e6f70"

func authHeader(t *testing.T, userID string) string {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: []byte("handler-secret"), JWTExp: time.Hour}
	security.InitJWT()
	t.Cleanup(func() { config.AppConfig = prev })

	tok, err := security.GenerateToken(userID)
	require.NoError(t, err)
	return "Bearer " + tok
}

// mount builds a router the way the API does: verifier first, handler
// routes under prefix.
func mount(prefix string, register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(security.TokenAuth))
	r.Route(prefix, register)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method, target, auth string, body interface{}) *http.Request {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

type formFile struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, method, target, auth string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst))
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
}

type stubAuthService struct {
	signup func(service.SignupRequest) (*service.AuthResponse, error)
	login  func(service.LoginRequest) (*service.AuthResponse, error)
}

func (s *stubAuthService) Signup(_ context.Context, req service.SignupRequest) (*service.AuthResponse, error) {
	return s.signup(req)
}

func (s *stubAuthService) Login(_ context.Context, req service.LoginRequest) (*service.AuthResponse, error) {
	return s.login(req)
}

// stubBookService records the last call's inputs and returns the canned
// values.
type stubBookService struct {
	books []model.Book
	book  *model.Book
	err   error

	gotQuery   string
	gotUser    string
	gotID      string
	gotCreate  service.CreateBookRequest
	gotUpdate  service.UpdateBookRequest
	gotCover   *service.CoverUpload
	coverBytes []byte
}

func (s *stubBookService) readCover(cover *service.CoverUpload) {
	s.gotCover = cover
	if cover != nil {
		s.coverBytes, _ = io.ReadAll(cover.Body)
	}
}

func (s *stubBookService) Search(_ context.Context, query, requesterID string) ([]model.Book, error) {
	s.gotQuery, s.gotUser = query, requesterID
	return s.books, s.err
}

func (s *stubBookService) Create(_ context.Context, ownerID string, req service.CreateBookRequest, cover *service.CoverUpload) (*model.Book, error) {
	s.gotUser, s.gotCreate = ownerID, req
	s.readCover(cover)
	return s.book, s.err
}

func (s *stubBookService) Get(_ context.Context, id string) (*model.BookDetails, error) {
	s.gotID = id
	if s.err != nil {
		return nil, s.err
	}
	return &model.BookDetails{Book: *s.book, Owner: model.UserSummary{ID: s.book.AddedBy, Username: "seller"}}, nil
}

func (s *stubBookService) ListOwned(_ context.Context, ownerID string) ([]model.Book, error) {
	s.gotUser = ownerID
	return s.books, s.err
}

func (s *stubBookService) Update(_ context.Context, id, ownerID string, req service.UpdateBookRequest, cover *service.CoverUpload) (*model.Book, error) {
	s.gotID, s.gotUser, s.gotUpdate = id, ownerID, req
	s.readCover(cover)
	return s.book, s.err
}

func (s *stubBookService) Delete(_ context.Context, id, ownerID string) error {
	s.gotID, s.gotUser = id, ownerID
	return s.err
}

type stubPurchaseService struct {
	validate  *service.ValidatePasswordResponse
	buy       *service.BuyResponse
	purchases []model.Purchase
	err       error

	gotUser     string
	gotBook     string
	gotPassword string
	gotBuy      service.BuyRequest
}

func (s *stubPurchaseService) ValidatePassword(_ context.Context, userID string, req service.ValidatePasswordRequest) (*service.ValidatePasswordResponse, error) {
	s.gotUser, s.gotPassword = userID, req.Password
	return s.validate, s.err
}

func (s *stubPurchaseService) Buy(_ context.Context, userID, bookID string, req service.BuyRequest) (*service.BuyResponse, error) {
	s.gotUser, s.gotBook, s.gotBuy = userID, bookID, req
	return s.buy, s.err
}

func (s *stubPurchaseService) ListPurchases(_ context.Context, userID string) ([]model.Purchase, error) {
	s.gotUser = userID
	return s.purchases, s.err
}

type stubReviewService struct {
	created *service.CreateReviewResponse
	reviews []model.Review
	err     error

	gotUser     string
	gotUsername string
	gotReq      service.CreateReviewRequest
}

func (s *stubReviewService) Submit(_ context.Context, userID string, req service.CreateReviewRequest) (*service.CreateReviewResponse, error) {
	s.gotUser, s.gotReq = userID, req
	return s.created, s.err
}

func (s *stubReviewService) ListMine(_ context.Context, userID string) ([]model.Review, error) {
	s.gotUser = userID
	return s.reviews, s.err
}

func (s *stubReviewService) ListByUsername(_ context.Context, username string) ([]model.Review, error) {
	s.gotUsername = username
	return s.reviews, s.err
}

type stubCatalogService struct {
	vols     []model.CatalogVolume
	err      error
	gotQuery string
}

func (s *stubCatalogService) Search(_ context.Context, query string) ([]model.CatalogVolume, error) {
	s.gotQuery = query
	return s.vols, s.err
}

func readCloser(r io.Reader) io.ReadCloser {
	return io.NopCloser(r)
}

func jpegBytes() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 64)...)
}
