package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/filter/payload"
	"github.com/matthewbaird/tablefilter/internal/rows"
)

// DataHandler is the query endpoint the row fetcher talks to.
type DataHandler struct {
	store  rows.Store
	logger zerolog.Logger
}

func NewDataHandler(store rows.Store, logger zerolog.Logger) *DataHandler {
	return &DataHandler{store: store, logger: logger.With().Str("component", "data_handler").Logger()}
}

// Query evaluates a filter request and returns the matching records as a
// JSON array.
func (h *DataHandler) Query(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if err := payload.ValidateRequest(data); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	var q rows.Query
	if err := json.Unmarshal(data, &q); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	if err := rows.CheckDepth(q.Filter, q.MaxNestingLevel); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}

	records, err := h.store.Query(r.Context(), q)
	switch {
	case err == nil:
	case errors.Is(err, rows.ErrUnknownProperty),
		errors.Is(err, rows.ErrUnsupportedCondition),
		errors.Is(err, rows.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	default:
		h.logger.Error().Err(err).Msg("querying records")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	if records == nil {
		records = []rows.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
