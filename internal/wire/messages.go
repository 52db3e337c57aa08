// Package wire defines the WebSocket protocol for interactive filter editing.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/tablefilter/internal/filter/builder"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
	"github.com/matthewbaird/tablefilter/internal/rows"
)

// Client message types.
const (
	TypeAddRule     = "add_rule"
	TypeAddSubgroup = "add_subgroup"
	TypeUpdateGroup = "update_group"
	TypeUpdateRule  = "update_rule"
	TypeRemoveRule  = "remove_rule"
	TypeRemoveGroup = "remove_group"
	TypeApply       = "apply"
	TypeReset       = "reset"
	TypePing        = "ping"
)

// Server message types.
const (
	TypeSession  = "session"
	TypeTree     = "tree"
	TypeNotice   = "notice"
	TypeRejected = "rejected"
	TypePayload  = "payload"
	TypeLoading  = "loading"
	TypeRows     = "rows"
	TypePong     = "pong"
	TypeError    = "error"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// GroupData targets a group: add_rule, add_subgroup, remove_group.
type GroupData struct {
	GroupID string `json:"group_id"`
}

// UpdateGroupData is the payload for "update_group" messages.
type UpdateGroupData struct {
	GroupID         string                   `json:"group_id"`
	LogicalOperator *catalog.LogicalOperator `json:"logical_operator,omitempty"`
	IsNot           *bool                    `json:"is_not,omitempty"`
}

// RuleData targets a rule: remove_rule.
type RuleData struct {
	GroupID string `json:"group_id"`
	RuleID  string `json:"rule_id"`
}

// UpdateRuleData is the payload for "update_rule" messages. Property and
// condition changes run first, with their side effects on the value, then
// value and is_not are applied.
type UpdateRuleData struct {
	GroupID   string      `json:"group_id"`
	RuleID    string      `json:"rule_id"`
	Property  *string     `json:"property,omitempty"`
	Condition *string     `json:"condition,omitempty"`
	Value     *tree.Value `json:"value,omitempty"`
	IsNot     *bool       `json:"is_not,omitempty"`
}

// ApplyData is the optional payload for "apply" messages.
type ApplyData struct {
	Sort *rows.Sort `json:"sort,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string      `json:"session_id"`
	Tree      *tree.Group `json:"tree"`
}

// TreeData carries the tree snapshot after a transition.
type TreeData struct {
	Tree      *tree.Group   `json:"tree"`
	State     builder.State `json:"state"`
	Empty     bool          `json:"empty"`
	CreatedID string        `json:"created_id,omitempty"`

	// Negated maps node ids to their effective NOT state after ancestor
	// negations are composed.
	Negated map[string]bool `json:"negated"`
}

// NoticeData carries a non-fatal message for the user.
type NoticeData struct {
	Message string `json:"message"`
}

// RejectedData lists why apply was blocked.
type RejectedData struct {
	Message    string   `json:"message"`
	Conditions []string `json:"conditions,omitempty"`
}

// LoadingData announces a row fetch. Seq matches the RowsData of the same
// fetch.
type LoadingData struct {
	Seq     uint64 `json:"seq"`
	Loading bool   `json:"loading"`
}

// RowsData carries the rows of the latest fetch.
type RowsData struct {
	Seq  uint64     `json:"seq"`
	Rows []rows.Row `json:"rows"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
