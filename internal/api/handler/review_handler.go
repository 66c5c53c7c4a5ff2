package handler

import (
	"net/http"

	"book_market/internal/api/middleware"
	"book_market/internal/app/service"
	"book_market/internal/common"

	"github.com/go-chi/chi/v5"
)

type ReviewHandler struct {
	reviewService ReviewService
}

func NewReviewHandler(rs ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: rs}
}

func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reviews/username/{username}", h.listByUsername)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/reviews", h.submit)
		authed.Get("/user", h.listMine)
	})
}

func (h *ReviewHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.CreateReviewRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondErr(w, r, err)
		return
	}
	resp, err := h.reviewService.Submit(r.Context(), userID, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *ReviewHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	reviews, err := h.reviewService.ListMine(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) listByUsername(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewService.ListByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, reviews)
}
