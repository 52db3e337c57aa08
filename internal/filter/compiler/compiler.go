// Package compiler turns a filter tree into the wire query payload,
// pushing negation down to the leaves.
package compiler

import (
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/negation"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
)

// Compiler compiles trees against a catalog. It holds no mutable state.
type Compiler struct {
	catalog  *catalog.Catalog
	maxDepth int
}

// New creates a compiler. maxDepth is reported as maxNestingLevel.
func New(c *catalog.Catalog, maxDepth int) *Compiler {
	return &Compiler{catalog: c, maxDepth: maxDepth}
}

// Payload compiles root into the outbound payload. A root that compiles to
// nothing yields a payload without a filter.
func (c *Compiler) Payload(root *tree.Group) payload.Payload {
	p := payload.Payload{MaxNestingLevel: c.maxDepth}
	if f := c.Compile(root, false); f != nil {
		p.Filter = f
	}
	return p
}

// Compile compiles n under the inherited negation. It returns nil when the
// node contributes nothing to the query.
func (c *Compiler) Compile(n tree.Node, inherited bool) payload.Filter {
	switch node := n.(type) {
	case *tree.Rule:
		if f := c.compileRule(node, inherited); f != nil {
			return f
		}
	case *tree.Group:
		if f := c.compileGroup(node, inherited); f != nil {
			return f
		}
	}
	return nil
}

func (c *Compiler) compileGroup(g *tree.Group, inherited bool) *payload.CompoundFilter {
	eff := negation.Effective(g.IsNot, inherited)
	op := g.LogicalOperator
	if !op.Valid() {
		op = catalog.DefaultLogicalOperator
	}
	if eff {
		op = op.Flip()
	}

	var children []payload.Filter
	for _, child := range g.Children {
		if f := c.Compile(child, eff); f != nil {
			children = append(children, f)
		}
	}
	if len(children) == 0 {
		return nil
	}
	return &payload.CompoundFilter{Operator: op, Filters: children}
}

func (c *Compiler) compileRule(r *tree.Rule, inherited bool) *payload.PropertyFilter {
	if !r.Complete() {
		return nil
	}
	def, ok := c.catalog.Condition(r.Condition, r.PropertyType)
	if !ok {
		return nil
	}

	cond := r.Condition
	value := r.Value.Resolve(r.PropertyType)

	if negation.Effective(r.IsNot, inherited) {
		if r.PropertyType == catalog.Checkbox {
			switch r.Condition {
			case "equals":
				value = tree.Bool(!value.True())
			case "does_not_equal":
				cond = "equals"
				value = tree.Bool(value.True())
			default:
				return nil
			}
		} else {
			if def.UnsupportedForNot || def.InverseConditionValue == "" {
				return nil
			}
			cond = def.InverseConditionValue
		}
	}

	if r.PropertyType != catalog.Checkbox {
		if final, found := c.catalog.Condition(cond, r.PropertyType); found && final.HideValueInput {
			value = tree.Bool(true)
		}
	}

	return &payload.PropertyFilter{
		Property:  r.Property,
		Type:      r.PropertyType,
		Condition: cond,
		Value:     value.Interface(),
	}
}
