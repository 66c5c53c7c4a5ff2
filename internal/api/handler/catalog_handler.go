package handler

import (
	"net/http"

	"book_market/internal/common"

	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	catalogService CatalogService
}

func NewCatalogHandler(cs CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: cs}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.search)
}

func (h *CatalogHandler) search(w http.ResponseWriter, r *http.Request) {
	vols, err := h.catalogService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, vols)
}
