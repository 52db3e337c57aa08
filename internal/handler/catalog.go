package handler

import (
	"net/http"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
)

// CatalogHandler serves property and condition definitions.
type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// ListProperties returns every filterable property.
func (h *CatalogHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Properties())
}

// ListConditions returns the conditions, restricted to one property type
// when property_type is given.
func (h *CatalogHandler) ListConditions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("property_type")
	if raw == "" {
		writeJSON(w, http.StatusOK, h.catalog.Conditions())
		return
	}
	pt := catalog.PropertyType(raw)
	if !pt.Valid() {
		writeError(w, http.StatusBadRequest, "INVALID_PROPERTY_TYPE", "unknown property type: "+raw)
		return
	}
	writeJSON(w, http.StatusOK, h.catalog.ConditionsFor(pt))
}
