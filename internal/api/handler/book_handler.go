package handler

import (
	"net/http"

	"book_market/internal/api/middleware"
	"book_market/internal/app/service"
	"book_market/internal/common"
	"book_market/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

const purchaseIntentHeader = "X-Purchase-Intent"

type BookHandler struct {
	bookService     BookService
	purchaseService PurchaseService
	maxCoverBytes   int64
	confirmLimit    func(http.Handler) http.Handler
}

// NewBookHandler wires the listing routes. confirmLimit guards password
// re-entry and may be nil.
func NewBookHandler(bs BookService, ps PurchaseService, maxCoverBytes int64, confirmLimit func(http.Handler) http.Handler) *BookHandler {
	if confirmLimit == nil {
		confirmLimit = func(next http.Handler) http.Handler { return next }
	}
	return &BookHandler{bookService: bs, purchaseService: ps, maxCoverBytes: maxCoverBytes, confirmLimit: confirmLimit}
}

func (h *BookHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/search", h.search)
	r.Post("/post", h.create)
	r.With(h.confirmLimit).Post("/validate-password", h.validatePassword)
	r.Post("/buy/{id}", h.buy)
	r.Get("/{id}", h.get)
}

type createBookResponse struct {
	Message string      `json:"message"`
	Book    *model.Book `json:"book"`
}

func (h *BookHandler) search(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	books, err := h.bookService.Search(r.Context(), r.URL.Query().Get("query"), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, books)
}

func (h *BookHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req service.CreateBookRequest
	var cover *service.CoverUpload
	if isMultipart(r) {
		form, err := parseBookForm(w, r, h.maxCoverBytes)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		defer form.Close()
		if req, err = form.createRequest(); err != nil {
			respondErr(w, r, err)
			return
		}
		cover = form.cover
	} else if err := decodeJSON(r, &req, false); err != nil {
		respondErr(w, r, err)
		return
	}

	book, err := h.bookService.Create(r.Context(), userID, req, cover)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, createBookResponse{Message: "Book added successfully!", Book: book})
}

func (h *BookHandler) get(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, book)
}

func (h *BookHandler) validatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.ValidatePasswordRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondErr(w, r, err)
		return
	}
	resp, err := h.purchaseService.ValidatePassword(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *BookHandler) buy(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.BuyRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondErr(w, r, err)
		return
	}
	if req.IntentToken == "" {
		req.IntentToken = r.Header.Get(purchaseIntentHeader)
	}

	resp, err := h.purchaseService.Buy(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
