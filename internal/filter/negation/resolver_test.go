package negation

import (
	"testing"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
	"github.com/stretchr/testify/assert"
)

func rule(id, property string, pt catalog.PropertyType, cond string, isNot bool) *tree.Rule {
	return &tree.Rule{ID: id, Property: property, PropertyType: pt, Condition: cond, Value: tree.String("x"), IsNot: isNot}
}

func group(id string, level int, isNot bool, children ...tree.Node) *tree.Group {
	return &tree.Group{ID: id, LogicalOperator: catalog.And, Level: level, IsNot: isNot, Children: children}
}

func TestEffective(t *testing.T) {
	assert.False(t, Effective(false, false))
	assert.True(t, Effective(true, false))
	assert.True(t, Effective(false, true))
	assert.False(t, Effective(true, true))
}

func TestResolve_XORDownThePath(t *testing.T) {
	root := group("root", 0, true,
		rule("r1", "Company", catalog.RichText, "contains", false),
		group("g1", 1, true,
			rule("r2", "Company", catalog.RichText, "contains", true),
			rule("r3", "Company", catalog.RichText, "contains", false),
		),
	)

	got := New(catalog.Default()).Resolve(root)
	assert.Equal(t, map[string]bool{
		"root": true,
		"r1":   true,
		"g1":   false,
		"r2":   true,
		"r3":   false,
	}, got)
}

func TestCollect_StartsWithNegatedIsUnsupported(t *testing.T) {
	root := group("root", 0, false, rule("r1", "Company", catalog.RichText, "starts_with", true))

	got := New(catalog.Default()).Collect(root)
	assert.Equal(t, []string{`"Starts with" for "Company"`}, got)
}

func TestCollect_UnsupportedAtAnyDepth(t *testing.T) {
	cases := []struct {
		name string
		root *tree.Group
	}{
		{"negated parent", group("root", 0, false, group("g1", 1, true, rule("r", "Company", catalog.RichText, "ends_with", false)))},
		{"negated root", group("root", 0, true, rule("r", "Company", catalog.RichText, "ends_with", false))},
		{"three flags", group("root", 0, true, group("g1", 1, true, rule("r", "Company", catalog.RichText, "ends_with", true)))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEmpty(t, New(catalog.Default()).Collect(tc.root))
		})
	}
}

func TestCollect_DoubleNegationCancels(t *testing.T) {
	root := group("root", 0, false, group("g1", 1, true, rule("r", "Company", catalog.RichText, "starts_with", true)))
	assert.Empty(t, New(catalog.Default()).Collect(root))
}

func TestCollect_Deduplicates(t *testing.T) {
	root := group("root", 0, true,
		rule("r1", "Company", catalog.RichText, "starts_with", false),
		rule("r2", "Company", catalog.RichText, "starts_with", false),
		rule("r3", "Close Date", catalog.Date, "equals", false),
	)
	got := New(catalog.Default()).Collect(root)
	assert.Equal(t, []string{`"Starts with" for "Company"`, `"Is" for "Close Date"`}, got)
}

func TestCollect_NegatableConditionsPass(t *testing.T) {
	root := group("root", 0, false,
		rule("r1", "Priority", catalog.Select, "equals", true),
		rule("r2", "Estimated Value", catalog.Number, "greater_than", true),
		rule("r3", "Priority", catalog.Select, "is_empty", true),
		&tree.Rule{ID: "r4", Property: "Follow Up", PropertyType: catalog.Checkbox, Condition: "equals", Value: tree.Bool(true), IsNot: true},
		&tree.Rule{ID: "r5", IsNot: true},
	)
	assert.Empty(t, New(catalog.Default()).Collect(root))
}

func TestUnsupported_NoInverse(t *testing.T) {
	c := catalog.New(
		[]catalog.PropertyDefinition{{Label: "Score", Value: "Score", Type: catalog.Number}},
		[]catalog.ConditionDefinition{
			{Label: "Is prime", Value: "is_prime", ApplicablePropertyTypes: []catalog.PropertyType{catalog.Number}},
			{Label: "Is flagged", Value: "is_flagged", ApplicablePropertyTypes: []catalog.PropertyType{catalog.Number}, HideValueInput: true},
			{Label: "Odd box", Value: "odd", ApplicablePropertyTypes: []catalog.PropertyType{catalog.Checkbox}},
		},
	)
	r := New(c)

	desc, bad := r.Unsupported(rule("r", "Score", catalog.Number, "is_prime", true), false)
	assert.True(t, bad)
	assert.Equal(t, `"Is prime" for "Score" (no direct inverse)`, desc)

	_, bad = r.Unsupported(rule("r", "Score", catalog.Number, "is_flagged", true), false)
	assert.False(t, bad)

	// checkbox rules are exempt from the missing-inverse check
	_, bad = r.Unsupported(rule("r", "Box", catalog.Checkbox, "odd", true), false)
	assert.False(t, bad)

	_, bad = r.Unsupported(rule("r", "Score", catalog.Number, "is_prime", false), false)
	assert.False(t, bad)
}
