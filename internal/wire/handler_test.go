package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/tablefilter/internal/fetch"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/rows"
	"github.com/matthewbaird/tablefilter/internal/session"
)

type reply struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type client struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dial(t *testing.T, sessions *session.Manager, query string) *client {
	t.Helper()
	srv := httptest.NewServer(NewHandler(sessions, zerolog.Nop()))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &client{t: t, ctx: ctx, conn: conn}
}

func (c *client) send(typ, id string, data any) {
	c.t.Helper()
	msg := map[string]any{"type": typ, "id": id}
	if data != nil {
		msg["data"] = data
	}
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, msg))
}

func (c *client) read() reply {
	c.t.Helper()
	var r reply
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &r))
	return r
}

func (c *client) expect(typ string) reply {
	c.t.Helper()
	r := c.read()
	require.Equal(c.t, typ, r.Type, "data: %s", r.Data)
	return r
}

type treeView struct {
	Tree struct {
		ID       string `json:"id"`
		IsNot    bool   `json:"isNot"`
		Children []struct {
			ID        string `json:"id"`
			Type      string `json:"type"`
			Property  string `json:"property"`
			Condition string `json:"condition"`
			Value     any    `json:"value"`
		} `json:"children"`
	} `json:"tree"`
	State     string          `json:"state"`
	Empty     bool            `json:"empty"`
	CreatedID string          `json:"created_id"`
	Negated   map[string]bool `json:"negated"`
}

func (c *client) expectTree() treeView {
	c.t.Helper()
	var tv treeView
	require.NoError(c.t, json.Unmarshal(c.expect(TypeTree).Data, &tv))
	return tv
}

func newSessions() *session.Manager {
	store := rows.NewMemoryStore(catalog.Default())
	if err := rows.Seed(context.Background(), store, zerolog.Nop()); err != nil {
		panic(err)
	}
	return session.NewManager(catalog.Default(), fetch.NewStoreFetcher(store, zerolog.Nop()), time.Hour, time.Hour)
}

func (c *client) rootID() string {
	c.t.Helper()
	var sd struct {
		SessionID string `json:"session_id"`
		Tree      struct {
			ID string `json:"id"`
		} `json:"tree"`
	}
	require.NoError(c.t, json.Unmarshal(c.expect(TypeSession).Data, &sd))
	require.NotEmpty(c.t, sd.SessionID)
	return sd.Tree.ID
}

func TestHandler_EditApplyAndRows(t *testing.T) {
	c := dial(t, newSessions(), "")
	root := c.rootID()

	c.send(TypeAddRule, "1", GroupData{GroupID: root})
	tv := c.expectTree()
	assert.False(t, tv.Empty)
	ruleID := tv.CreatedID
	require.NotEmpty(t, ruleID)

	prop, cond := "Priority", "equals"
	c.send(TypeUpdateRule, "2", map[string]any{
		"group_id": root, "rule_id": ruleID,
		"property": prop, "condition": cond, "value": "High",
	})
	tv = c.expectTree()
	require.Len(t, tv.Tree.Children, 1)
	assert.Equal(t, "Priority", tv.Tree.Children[0].Property)
	assert.Equal(t, "High", tv.Tree.Children[0].Value)

	c.send(TypeApply, "3", ApplyData{Sort: &rows.Sort{Property: "EstimatedValue", Direction: rows.Descending}})
	p := c.expect(TypePayload)
	assert.Equal(t, "3", p.RequestID)
	assert.JSONEq(t, `{"filter":{"and":[{"property":"Priority","select":{"equals":"High"}}]},"maxNestingLevel":2}`, string(p.Data))
	assert.Equal(t, "applied", c.expectTree().State)
	var ld LoadingData
	require.NoError(t, json.Unmarshal(c.expect(TypeLoading).Data, &ld))
	assert.True(t, ld.Loading)

	var rd RowsData
	require.NoError(t, json.Unmarshal(c.expect(TypeRows).Data, &rd))
	assert.Equal(t, ld.Seq, rd.Seq)
	require.NotEmpty(t, rd.Rows)
	for _, r := range rd.Rows {
		assert.Equal(t, "High", r.Priority)
	}
	for i := 1; i < len(rd.Rows); i++ {
		prev, cur := rd.Rows[i-1].EstimatedValue, rd.Rows[i].EstimatedValue
		if prev != nil && cur != nil {
			assert.GreaterOrEqual(t, *prev, *cur)
		}
	}
}

func TestHandler_DepthLimitNotice(t *testing.T) {
	c := dial(t, newSessions(), "")
	root := c.rootID()

	c.send(TypeAddSubgroup, "1", GroupData{GroupID: root})
	sub := c.expectTree().CreatedID

	c.send(TypeAddSubgroup, "2", GroupData{GroupID: sub})
	n := c.expect(TypeNotice)
	assert.Contains(t, string(n.Data), "maximum filter depth reached")
}

func TestHandler_RejectedApply(t *testing.T) {
	c := dial(t, newSessions(), "")
	root := c.rootID()

	c.send(TypeAddRule, "1", GroupData{GroupID: root})
	ruleID := c.expectTree().CreatedID
	c.send(TypeUpdateRule, "2", map[string]any{
		"group_id": root, "rule_id": ruleID,
		"property": "Company", "condition": "starts_with", "value": "Ac", "is_not": true,
	})
	tv := c.expectTree()
	assert.Equal(t, map[string]bool{root: false, ruleID: true}, tv.Negated)

	c.send(TypeApply, "3", nil)
	var rj RejectedData
	require.NoError(t, json.Unmarshal(c.expect(TypeRejected).Data, &rj))
	require.Len(t, rj.Conditions, 1)
	assert.Contains(t, rj.Conditions[0], "Company")
	assert.Equal(t, "rejected", c.expectTree().State)
}

func TestHandler_Errors(t *testing.T) {
	c := dial(t, newSessions(), "")
	root := c.rootID()

	cases := []struct {
		typ  string
		data any
		code string
	}{
		{TypeAddRule, GroupData{GroupID: "nope"}, "not_found"},
		{TypeRemoveGroup, GroupData{GroupID: root}, "root_not_removable"},
		{TypeUpdateGroup, map[string]any{"group_id": root, "logical_operator": "xor"}, "invalid_operator"},
		{TypeAddRule, nil, "invalid_data"},
		{"bogus", nil, "unknown_type"},
	}
	for i, tc := range cases {
		c.send(tc.typ, string(rune('a'+i)), tc.data)
		r := c.expect(TypeError)
		var ed ErrorData
		require.NoError(t, json.Unmarshal(r.Data, &ed))
		assert.Equal(t, tc.code, ed.Code, tc.typ)
	}

	c.send(TypeAddRule, "x", GroupData{GroupID: root})
	ruleID := c.expectTree().CreatedID
	c.send(TypeUpdateRule, "y", map[string]any{"group_id": root, "rule_id": ruleID, "property": "Compny"})
	var ed ErrorData
	require.NoError(t, json.Unmarshal(c.expect(TypeError).Data, &ed))
	assert.Equal(t, "unknown_property", ed.Code)
	assert.Contains(t, ed.Message, "did you mean 'Company'?")
}

func TestHandler_PingResetAndResume(t *testing.T) {
	sessions := newSessions()
	existing := sessions.Create(nil)
	_, err := existing.Builder.AddRule(existing.Builder.Tree().ID)
	require.NoError(t, err)

	c := dial(t, sessions, "?session_id="+existing.ID)
	root := c.rootID()
	assert.Equal(t, existing.Builder.Tree().ID, root)

	c.send(TypePing, "p", nil)
	assert.Equal(t, "p", c.expect(TypePong).RequestID)

	c.send(TypeReset, "r", nil)
	tv := c.expectTree()
	assert.True(t, tv.Empty)
	assert.NotEqual(t, root, tv.Tree.ID)
}
