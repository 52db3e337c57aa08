package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/filter/builder"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
	"github.com/matthewbaird/tablefilter/internal/rows"
	"github.com/matthewbaird/tablefilter/internal/session"
)

// Handler manages WebSocket connections for builder sessions.
type Handler struct {
	sessions *session.Manager
	logger   zerolog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(sessions *session.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger.With().Str("component", "wire").Logger(),
	}
}

// ServeHTTP upgrades to WebSocket and runs the message loop. A session_id
// query parameter resumes an existing session; otherwise a new one is
// created.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	var fetches sync.WaitGroup
	defer fetches.Wait()
	defer cancel()

	sess := h.session(r.URL.Query().Get("session_id"))
	h.send(ctx, conn, ServerMessage{
		Type: TypeSession,
		Data: SessionData{SessionID: sess.ID, Tree: sess.Builder.Tree()},
	})

	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug().Int("status", int(websocket.CloseStatus(err))).Str("session_id", sess.ID).Msg("connection closed")
			}
			return
		}
		sess.Touch()

		switch msg.Type {
		case TypeAddRule, TypeAddSubgroup, TypeUpdateGroup, TypeUpdateRule, TypeRemoveRule, TypeRemoveGroup:
			h.handleEdit(ctx, conn, sess, msg)
		case TypeReset:
			sess.Builder.Reset()
			h.sendTree(ctx, conn, sess, msg.ID, "")
		case TypeApply:
			h.handleApply(ctx, conn, sess, msg, &fetches)
		case TypePing:
			h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) session(id string) *session.Session {
	if id != "" {
		if s := h.sessions.Get(id); s != nil {
			return s
		}
	}
	return h.sessions.Create(nil)
}

func (h *Handler) handleEdit(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage) {
	created, err := edit(sess.Builder, msg)
	if err != nil {
		var depthErr *tree.DepthLimitError
		if errors.As(err, &depthErr) {
			h.send(ctx, conn, ServerMessage{Type: TypeNotice, RequestID: msg.ID, Data: NoticeData{Message: depthErr.Error()}})
			return
		}
		h.sendError(ctx, conn, msg.ID, errorCode(err), err.Error())
		return
	}
	h.sendTree(ctx, conn, sess, msg.ID, created)
}

var errInvalidData = errors.New("invalid message data")

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errInvalidData
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidData, err)
	}
	return nil
}

// edit applies one editing message and returns the id of a created node.
func edit(c *builder.Controller, msg ClientMessage) (string, error) {
	switch msg.Type {
	case TypeAddRule, TypeAddSubgroup:
		var d GroupData
		if err := decode(msg.Data, &d); err != nil {
			return "", err
		}
		if msg.Type == TypeAddRule {
			return c.AddRule(d.GroupID)
		}
		return c.AddSubgroup(d.GroupID)
	case TypeUpdateGroup:
		var d UpdateGroupData
		if err := decode(msg.Data, &d); err != nil {
			return "", err
		}
		return "", c.UpdateGroup(d.GroupID, tree.GroupPatch{LogicalOperator: d.LogicalOperator, IsNot: d.IsNot})
	case TypeUpdateRule:
		var d UpdateRuleData
		if err := decode(msg.Data, &d); err != nil {
			return "", err
		}
		return "", updateRule(c, d)
	case TypeRemoveRule:
		var d RuleData
		if err := decode(msg.Data, &d); err != nil {
			return "", err
		}
		return "", c.RemoveRule(d.GroupID, d.RuleID)
	case TypeRemoveGroup:
		var d GroupData
		if err := decode(msg.Data, &d); err != nil {
			return "", err
		}
		return "", c.RemoveGroup(d.GroupID)
	}
	return "", fmt.Errorf("unhandled message type %s", msg.Type)
}

func updateRule(c *builder.Controller, d UpdateRuleData) error {
	if d.Property != nil {
		if err := c.ChangeProperty(d.GroupID, d.RuleID, *d.Property); err != nil {
			return err
		}
	}
	if d.Condition != nil {
		if err := c.ChangeCondition(d.GroupID, d.RuleID, *d.Condition); err != nil {
			return err
		}
	}
	if d.Value == nil && d.IsNot == nil {
		return nil
	}
	return c.UpdateRule(d.GroupID, d.RuleID, tree.RulePatch{Value: d.Value, IsNot: d.IsNot})
}

func (h *Handler) handleApply(ctx context.Context, conn *websocket.Conn, sess *session.Session, msg ClientMessage, fetches *sync.WaitGroup) {
	var d ApplyData
	if len(msg.Data) > 0 {
		if err := decode(msg.Data, &d); err != nil {
			h.sendError(ctx, conn, msg.ID, errorCode(err), err.Error())
			return
		}
	}

	p, err := sess.Apply(ctx)
	if err != nil {
		rejected := RejectedData{Message: err.Error()}
		var notErr *builder.UnsupportedNotError
		if errors.As(err, &notErr) {
			rejected.Conditions = notErr.Conditions
		}
		h.send(ctx, conn, ServerMessage{Type: TypeRejected, RequestID: msg.ID, Data: rejected})
		h.sendTree(ctx, conn, sess, msg.ID, "")
		return
	}

	h.send(ctx, conn, ServerMessage{Type: TypePayload, RequestID: msg.ID, Data: p})
	h.sendTree(ctx, conn, sess, msg.ID, "")
	seq := sess.BeginFetch()
	h.send(ctx, conn, ServerMessage{Type: TypeLoading, RequestID: msg.ID, Data: LoadingData{Seq: seq, Loading: true}})

	q := rows.FromPayload(p, d.Sort)
	fetches.Add(1)
	go func() {
		defer fetches.Done()
		res := sess.Fetch(ctx, seq, q)
		if res.Stale {
			return
		}
		h.send(ctx, conn, ServerMessage{Type: TypeRows, RequestID: msg.ID, Data: RowsData{Seq: res.Seq, Rows: res.Rows}})
	}()
}

func (h *Handler) sendTree(ctx context.Context, conn *websocket.Conn, sess *session.Session, requestID, created string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeTree,
		RequestID: requestID,
		Data: TreeData{
			Tree:      sess.Builder.Tree(),
			State:     sess.Builder.State(),
			Empty:     sess.Builder.Empty(),
			CreatedID: created,
			Negated:   sess.Builder.Negations(),
		},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug().Err(err).Str("type", msg.Type).Msg("write")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errInvalidData):
		return "invalid_data"
	case errors.Is(err, builder.ErrNodeNotFound):
		return "not_found"
	case errors.Is(err, builder.ErrRootNotRemovable):
		return "root_not_removable"
	case errors.Is(err, builder.ErrUnknownProperty):
		return "unknown_property"
	case errors.Is(err, builder.ErrUnknownCondition):
		return "unknown_condition"
	case errors.Is(err, builder.ErrInvalidOperator):
		return "invalid_operator"
	default:
		return "internal"
	}
}
