// Package negation resolves the effective NOT state of filter tree nodes
// and reports rules whose conditions cannot be honestly negated.
package negation

import (
	"fmt"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
)

// Effective composes a node's own flag with the flag inherited from its
// ancestors. Negations along a path compose by XOR.
func Effective(isNot, inherited bool) bool {
	if inherited {
		return !isNot
	}
	return isNot
}

// Resolver checks negatability against a condition catalog.
type Resolver struct {
	catalog *catalog.Catalog
}

// New creates a resolver backed by c.
func New(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve returns the effective negation of every node id in the tree.
// The root starts with no inherited negation.
func (r *Resolver) Resolve(root *tree.Group) map[string]bool {
	out := make(map[string]bool)
	var visit func(n tree.Node, inherited bool)
	visit = func(n tree.Node, inherited bool) {
		eff := Effective(n.Negated(), inherited)
		out[n.NodeID()] = eff
		if g, ok := n.(*tree.Group); ok {
			for _, c := range g.Children {
				visit(c, eff)
			}
		}
	}
	visit(root, false)
	return out
}

// Unsupported reports whether rule cannot be negated under the inherited
// negation, with a human-readable description when it cannot. Incomplete
// rules and rules with unknown conditions are never reported; the compiler
// drops them.
func (r *Resolver) Unsupported(rule *tree.Rule, inherited bool) (string, bool) {
	if !Effective(rule.IsNot, inherited) || rule.Condition == "" {
		return "", false
	}
	cond, ok := r.catalog.Condition(rule.Condition, rule.PropertyType)
	if !ok {
		return "", false
	}

	label := rule.Property
	if p, found := r.catalog.Property(rule.Property); found {
		label = p.Label
	}

	if cond.UnsupportedForNot {
		return fmt.Sprintf("%q for %q", cond.Label, label), true
	}
	if rule.PropertyType == catalog.Checkbox {
		return "", false
	}
	if cond.InverseConditionValue == "" && !cond.HideValueInput {
		return fmt.Sprintf("%q for %q (no direct inverse)", cond.Label, label), true
	}
	return "", false
}

// Collect walks the tree carrying the accumulated negation down and returns
// the deduplicated descriptions of rules that cannot be negated, in
// depth-first order. An empty result means the tree is negation-safe.
func (r *Resolver) Collect(root *tree.Group) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(n tree.Node, inherited bool)
	visit = func(n tree.Node, inherited bool) {
		switch node := n.(type) {
		case *tree.Rule:
			if desc, bad := r.Unsupported(node, inherited); bad && !seen[desc] {
				seen[desc] = true
				out = append(out, desc)
			}
		case *tree.Group:
			eff := Effective(node.IsNot, inherited)
			for _, c := range node.Children {
				visit(c, eff)
			}
		}
	}
	visit(root, false)
	return out
}
