package handler

import (
	"net/http"

	"github.com/flowlet/flowlet/internal/catalog"
)

// CatalogHandler serves the component catalog.
type CatalogHandler struct {
	catalog catalog.Catalog
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(c catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// All returns every component category with its templates.
// GET /api/v1/all
func (h *CatalogHandler) All(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}
