package handler

import (
	"net/http"

	"book_market/internal/api/middleware"
	"book_market/internal/app/service"
	"book_market/internal/common"

	"github.com/go-chi/chi/v5"
)

// ProfileHandler serves the caller's own listings and purchase history.
type ProfileHandler struct {
	bookService     BookService
	purchaseService PurchaseService
	maxCoverBytes   int64
}

func NewProfileHandler(bs BookService, ps PurchaseService, maxCoverBytes int64) *ProfileHandler {
	return &ProfileHandler{bookService: bs, purchaseService: ps, maxCoverBytes: maxCoverBytes}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listMine)
	r.Get("/purchases", h.purchases)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *ProfileHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	books, err := h.bookService.ListOwned(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, books)
}

func (h *ProfileHandler) purchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	purchases, err := h.purchaseService.ListPurchases(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, purchases)
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req service.UpdateBookRequest
	var cover *service.CoverUpload
	if isMultipart(r) {
		form, err := parseBookForm(w, r, h.maxCoverBytes)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		defer form.Close()
		if req, err = form.updateRequest(); err != nil {
			respondErr(w, r, err)
			return
		}
		cover = form.cover
	} else if err := decodeJSON(r, &req, false); err != nil {
		respondErr(w, r, err)
		return
	}

	book, err := h.bookService.Update(r.Context(), chi.URLParam(r, "id"), userID, req, cover)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, book)
}

func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.bookService.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "Book deleted successfully"})
}
