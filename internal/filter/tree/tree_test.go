package tree

import (
	"encoding/json"
	"testing"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// sampleTree builds root(and) -> [rule-1, group-2(or) -> [rule-3]].
func sampleTree() *Group {
	return &Group{
		ID:              "root",
		LogicalOperator: catalog.And,
		Children: []Node{
			&Rule{ID: "rule-1", Property: "Priority", PropertyType: catalog.Select, Condition: "equals", Value: String("High")},
			&Group{
				ID:              "group-2",
				LogicalOperator: catalog.Or,
				Level:           1,
				Children: []Node{
					&Rule{ID: "rule-3", Property: "Company", PropertyType: catalog.RichText, Condition: "contains", Value: String("Acme")},
				},
			},
		},
	}
}

func TestUpdateGroup(t *testing.T) {
	root := sampleTree()
	next := UpdateGroup(root, "group-2", GroupPatch{LogicalOperator: ptr(catalog.And), IsNot: ptr(true)})

	n, ok := Find(next, "group-2")
	require.True(t, ok)
	g := n.(*Group)
	assert.Equal(t, catalog.And, g.LogicalOperator)
	assert.True(t, g.IsNot)
	assert.Equal(t, 1, g.Level)

	// input untouched, sibling rule shared
	orig, _ := Find(root, "group-2")
	assert.Equal(t, catalog.Or, orig.(*Group).LogicalOperator)
	assert.Same(t, root.Children[0], next.Children[0])
}

func TestUpdateGroup_UnknownIDReturnsSameRoot(t *testing.T) {
	root := sampleTree()
	assert.Same(t, root, UpdateGroup(root, "missing", GroupPatch{IsNot: ptr(true)}))
	assert.Same(t, root, AddRule(root, "missing", "rule-9"))
	assert.Same(t, root, RemoveRule(root, "root", "missing"))
	assert.Same(t, root, UpdateRule(root, "root", "missing", RulePatch{IsNot: ptr(true)}))
	assert.Same(t, root, RemoveGroup(root, "missing"))
}

func TestAddRule_AppendsBlankRule(t *testing.T) {
	root := sampleTree()
	next := AddRule(root, "group-2", "rule-9")

	g, _ := Find(next, "group-2")
	children := g.(*Group).Children
	require.Len(t, children, 2)
	r := children[1].(*Rule)
	assert.Equal(t, &Rule{ID: "rule-9"}, r)
	assert.False(t, r.Complete())

	orig, _ := Find(root, "group-2")
	assert.Len(t, orig.(*Group).Children, 1)
}

func TestAddSubgroup(t *testing.T) {
	root := NewRoot("root")
	next, err := AddSubgroup(root, "root", "group-1", catalog.MaxFilterDepth)
	require.NoError(t, err)
	require.Len(t, next.Children, 1)

	sub := next.Children[0].(*Group)
	assert.Equal(t, 1, sub.Level)
	assert.Equal(t, catalog.DefaultLogicalOperator, sub.LogicalOperator)
	assert.Empty(t, sub.Children)
	assert.Empty(t, root.Children)
}

func TestAddSubgroup_DepthLimitLeavesTreeUnchanged(t *testing.T) {
	root := sampleTree()
	next, err := AddSubgroup(root, "group-2", "group-9", catalog.MaxFilterDepth)

	require.ErrorIs(t, err, ErrDepthLimit)
	var dle *DepthLimitError
	require.ErrorAs(t, err, &dle)
	assert.Equal(t, 2, dle.Level)
	assert.Equal(t, 2, dle.Max)
	assert.Contains(t, err.Error(), "level 2")
	assert.Same(t, root, next)
}

func TestAddSubgroup_DeeperConfiguredLimit(t *testing.T) {
	root := sampleTree()
	next, err := AddSubgroup(root, "group-2", "group-9", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, Depth(next))
}

func TestUpdateRule_MergesPatch(t *testing.T) {
	root := sampleTree()
	next := UpdateRule(root, "group-2", "rule-3", RulePatch{Value: ptr(String("Globex")), IsNot: ptr(true)})

	r, ok := FindRule(next, "group-2", "rule-3")
	require.True(t, ok)
	assert.Equal(t, "Globex", r.Value.String())
	assert.True(t, r.IsNot)
	assert.Equal(t, "contains", r.Condition)

	old, _ := FindRule(root, "group-2", "rule-3")
	assert.Equal(t, "Acme", old.Value.String())
}

func TestUpdateRule_PropertyChangeResetsConditionAndValue(t *testing.T) {
	root := sampleTree()
	next := UpdateRule(root, "root", "rule-1", RulePatch{
		Property:     ptr("Estimated Value"),
		PropertyType: ptr(catalog.Number),
	})

	r, _ := FindRule(next, "root", "rule-1")
	assert.Equal(t, "Estimated Value", r.Property)
	assert.Equal(t, catalog.Number, r.PropertyType)
	assert.Empty(t, r.Condition)
	assert.True(t, r.Value.IsNone())
}

func TestUpdateRule_SamePropertyKeepsCondition(t *testing.T) {
	root := sampleTree()
	next := UpdateRule(root, "root", "rule-1", RulePatch{Property: ptr("Priority")})

	r, _ := FindRule(next, "root", "rule-1")
	assert.Equal(t, "equals", r.Condition)
	assert.Equal(t, "High", r.Value.String())
}

func TestUpdateRule_OnlyDirectChildren(t *testing.T) {
	root := sampleTree()
	// rule-3 lives under group-2, not root
	assert.Same(t, root, UpdateRule(root, "root", "rule-3", RulePatch{IsNot: ptr(true)}))
}

func TestRemoveRule(t *testing.T) {
	root := sampleTree()
	next := RemoveRule(root, "root", "rule-1")

	require.Len(t, next.Children, 1)
	assert.Equal(t, "group-2", next.Children[0].NodeID())
	assert.Len(t, root.Children, 2)
}

func TestRemoveGroup_DropsDescendants(t *testing.T) {
	root := sampleTree()
	next := RemoveGroup(root, "group-2")

	require.Len(t, next.Children, 1)
	_, found := Find(next, "rule-3")
	assert.False(t, found)
	_, found = Find(root, "rule-3")
	assert.True(t, found)
}

func TestRemoveGroup_RootIsNotRemovable(t *testing.T) {
	root := sampleTree()
	assert.Same(t, root, RemoveGroup(root, "root"))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 1, Depth(NewRoot("r")))
	assert.Equal(t, 2, Depth(sampleTree()))
}

func TestWalk_VisitsEveryNode(t *testing.T) {
	var ids []string
	Walk(sampleTree(), func(n Node) { ids = append(ids, n.NodeID()) })
	assert.Equal(t, []string{"root", "rule-1", "group-2", "rule-3"}, ids)
}

func TestJSON_RoundTrip(t *testing.T) {
	root := sampleTree()
	data, err := json.Marshal(root)
	require.NoError(t, err)

	parsed, err := Parse(data, catalog.MaxFilterDepth)
	require.NoError(t, err)
	assert.Equal(t, root, parsed)
}

func TestJSON_Shape(t *testing.T) {
	root := &Group{ID: "root", LogicalOperator: catalog.And, Children: []Node{&Rule{ID: "rule-1"}}}
	data, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "root", "type": "group", "logicalOperator": "and", "level": 0, "isNot": false,
		"children": [{"id": "rule-1", "type": "rule", "isNot": false}]
	}`, string(data))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"id":"r","type":"group","level":1,"children":[]}`), catalog.MaxFilterDepth)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"id":"r","type":"group","level":0,"children":[{"id":"g","type":"group","level":2,"children":[]}]}`), catalog.MaxFilterDepth)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"id":"r","type":"group","children":[{"id":"x","type":"leaf"}]}`), catalog.MaxFilterDepth)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"id":"r","type":"group","logicalOperator":"xor","children":[]}`), catalog.MaxFilterDepth)
	assert.Error(t, err)
}

func TestParse_RejectsDuplicateAndEmptyIDs(t *testing.T) {
	_, err := Parse([]byte(`{"id":"r","type":"group","children":[
		{"id":"g1","type":"group","level":1,"children":[]},
		{"id":"g1","type":"group","level":1,"children":[]}
	]}`), catalog.MaxFilterDepth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate node id "g1"`)

	_, err = Parse([]byte(`{"id":"r","type":"group","children":[{"id":"r","type":"rule"}]}`), catalog.MaxFilterDepth)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"id":"r","type":"group","children":[{"type":"rule"}]}`), catalog.MaxFilterDepth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule without id")
}

func TestParse_DepthLimit(t *testing.T) {
	deep := []byte(`{"id":"g0","type":"group","level":0,"children":[
		{"id":"g1","type":"group","level":1,"children":[
			{"id":"g2","type":"group","level":2,"children":[{"id":"r1","type":"rule"}]}
		]}
	]}`)
	_, err := Parse(deep, catalog.MaxFilterDepth)
	var depthErr *DepthLimitError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 2, depthErr.Level)
	assert.Equal(t, catalog.MaxFilterDepth, depthErr.Max)
	assert.ErrorIs(t, err, ErrDepthLimit)

	root, err := Parse(deep, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, Depth(root))
}

func TestValue_ResolveAndJSON(t *testing.T) {
	assert.Equal(t, Bool(true), String("true").Resolve(catalog.Checkbox))
	assert.Equal(t, Number(42.5), String(" 42.5 ").Resolve(catalog.Number))
	assert.Equal(t, KindDate, String("2024-05-01").Resolve(catalog.Date).Kind())
	assert.Equal(t, String("abc"), String("abc").Resolve(catalog.Number))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`12`), &v))
	assert.Equal(t, Number(12), v)
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsNone())
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))

	assert.True(t, Bool(true).True())
	assert.False(t, String("true").True())
}

func TestIDGenerator(t *testing.T) {
	g := NewDeterministicIDGenerator()
	assert.Equal(t, "rule-1", g.RuleID())
	assert.Equal(t, "group-2", g.GroupID())

	r := NewIDGenerator(100)
	a, b := r.RuleID(), r.RuleID()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^rule-100-[0-9a-f]{5}$`, a)
	assert.Regexp(t, `^rule-101-[0-9a-f]{5}$`, b)
}
