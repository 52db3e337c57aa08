package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/matthewbaird/tablefilter/internal/filter/builder"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
)

// FilterHandler compiles filter trees without a session.
type FilterHandler struct {
	catalog *catalog.Catalog
}

func NewFilterHandler(c *catalog.Catalog) *FilterHandler {
	return &FilterHandler{catalog: c}
}

// Compile turns a filter tree into the outbound payload. Trees that cannot
// be applied get 422 with the reason.
func (h *FilterHandler) Compile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	root, ok := parseTree(w, data)
	if !ok {
		return
	}

	p, err := builder.New(h.catalog, builder.WithInitialTree(root)).Apply()
	if err != nil {
		var notErr *builder.UnsupportedNotError
		switch {
		case errors.As(err, &notErr):
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:      err.Error(),
				Code:       "UNSUPPORTED_NOT",
				Conditions: notErr.Conditions,
			})
		case errors.Is(err, builder.ErrEmptyFilter):
			writeError(w, http.StatusUnprocessableEntity, "EMPTY_FILTER", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// parseTree decodes an imported filter tree, writing the error reply when
// it is malformed or too deep.
func parseTree(w http.ResponseWriter, data []byte) (*tree.Group, bool) {
	root, err := tree.Parse(data, catalog.MaxFilterDepth)
	if err != nil {
		if errors.Is(err, tree.ErrDepthLimit) {
			writeError(w, http.StatusUnprocessableEntity, "DEPTH_LIMIT", err.Error())
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_TREE", err.Error())
		}
		return nil, false
	}
	return root, true
}
