// Package rows provides the deals dataset: stored records, display rows,
// and the stores that evaluate wire filters against them.
package rows

import (
	"strings"

	"github.com/rs/zerolog"
)

// Status values shown in the table.
const (
	StatusClosed      = "Closed"
	StatusLead        = "Lead"
	StatusProposal    = "Proposal"
	StatusLost        = "Lost"
	StatusQualified   = "Qualified"
	StatusNegotiation = "Negotiation"
)

var statuses = []string{StatusClosed, StatusLead, StatusProposal, StatusLost, StatusQualified, StatusNegotiation}

// Record is one deal as served by the query endpoint.
type Record struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Company        string   `json:"company"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	EstimatedValue *float64 `json:"estimatedValue"`
	AccountOwner   string   `json:"accountOwner"`
	FollowUp       bool     `json:"followUp"`
	CloseDate      string   `json:"closeDate"` // YYYY-MM-DD or empty
	Tags           []string `json:"tags"`
}

// Row is a record as displayed by the table.
type Row struct {
	ID             int      `json:"id"`
	Name           string   `json:"Name"`
	Company        string   `json:"Company"`
	Status         string   `json:"Status"`
	Priority       string   `json:"Priority"`
	EstimatedValue *float64 `json:"EstimatedValue"`
	AccountOwner   string   `json:"AccountOwner"`
	FollowUp       bool     `json:"FollowUp"`
	CloseDate      string   `json:"CloseDate,omitempty"`
	Tags           []string `json:"Tags,omitempty"`
}

// NormalizeStatus maps a status string onto a known status, ignoring case.
// Unknown values map to Proposal and ok is false.
func NormalizeStatus(s string) (status string, ok bool) {
	for _, known := range statuses {
		if strings.EqualFold(s, known) {
			return known, true
		}
	}
	return StatusProposal, false
}

// ToRows converts records to display rows. A zero id is replaced by the
// record's 1-based position.
func ToRows(records []Record, logger zerolog.Logger) []Row {
	out := make([]Row, 0, len(records))
	for i, r := range records {
		id := r.ID
		if id == 0 {
			id = i + 1
		}
		status, ok := NormalizeStatus(r.Status)
		if !ok {
			logger.Warn().Str("status", r.Status).Int("id", id).Msg("unknown status, defaulting to Proposal")
		}
		out = append(out, Row{
			ID:             id,
			Name:           r.Name,
			Company:        r.Company,
			Status:         status,
			Priority:       r.Priority,
			EstimatedValue: r.EstimatedValue,
			AccountOwner:   r.AccountOwner,
			FollowUp:       r.FollowUp,
			CloseDate:      r.CloseDate,
			Tags:           r.Tags,
		})
	}
	return out
}

// sortRenames maps display column keys to the property names the query
// endpoint sorts by.
var sortRenames = map[string]string{
	"EstimatedValue": "Estimated Value",
	"AccountOwner":   "Account Owner",
	"FollowUp":       "Follow Up",
	"CloseDate":      "Close Date",
}

// WireSortProperty renames a display column key for transmission. Keys
// without an entry pass through unchanged.
func WireSortProperty(key string) string {
	if wire, ok := sortRenames[key]; ok {
		return wire
	}
	return key
}
