// Package tree implements the recursive filter tree and its pure mutation
// operations. Every mutation returns a new root; subtrees that did not
// change keep their pointer identity, and a mutation that finds no target
// returns the input root itself.
package tree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
)

// NodeType discriminates rules from groups on the wire.
type NodeType string

const (
	TypeRule  NodeType = "rule"
	TypeGroup NodeType = "group"
)

// Node is a *Rule or a *Group.
type Node interface {
	NodeID() string
	NodeType() NodeType
	Negated() bool
}

// Rule is a single condition on one property.
type Rule struct {
	ID           string
	Property     string
	PropertyType catalog.PropertyType
	Condition    string
	Value        Value
	IsNot        bool
}

func (r *Rule) NodeID() string     { return r.ID }
func (r *Rule) NodeType() NodeType { return TypeRule }
func (r *Rule) Negated() bool      { return r.IsNot }

// Complete reports whether property, property type and condition are set.
func (r *Rule) Complete() bool {
	return r.Property != "" && r.PropertyType != "" && r.Condition != ""
}

// Group joins its children with a logical operator.
type Group struct {
	ID              string
	LogicalOperator catalog.LogicalOperator
	Children        []Node
	Level           int
	IsNot           bool
}

func (g *Group) NodeID() string     { return g.ID }
func (g *Group) NodeType() NodeType { return TypeGroup }
func (g *Group) Negated() bool      { return g.IsNot }

// NewRoot returns an empty level-0 group.
func NewRoot(id string) *Group {
	return &Group{ID: id, LogicalOperator: catalog.DefaultLogicalOperator, Level: 0}
}

// ErrDepthLimit is matched by *DepthLimitError.
var ErrDepthLimit = errors.New("maximum filter depth reached")

// DepthLimitError is returned when a group would sit deeper than the
// maximum depth allows, either added by an edit or found in a parsed tree.
type DepthLimitError struct {
	Level int // level of the offending group
	Max   int
}

func (e *DepthLimitError) Error() string {
	return fmt.Sprintf("maximum filter depth reached: group at level %d, limit is %d levels", e.Level, e.Max)
}

func (e *DepthLimitError) Is(target error) bool {
	return target == ErrDepthLimit
}

// GroupPatch holds the group fields a caller may change. Nil fields are kept.
type GroupPatch struct {
	LogicalOperator *catalog.LogicalOperator
	IsNot           *bool
}

// RulePatch holds the rule fields a caller may change. Nil fields are kept.
// Changing Property clears Condition and Value before the rest of the patch
// is applied.
type RulePatch struct {
	Property     *string
	PropertyType *catalog.PropertyType
	Condition    *string
	Value        *Value
	IsNot        *bool
}

func (p RulePatch) apply(r Rule) Rule {
	if p.Property != nil && *p.Property != r.Property {
		r.Property = *p.Property
		r.Condition = ""
		r.Value = None
	}
	if p.PropertyType != nil {
		r.PropertyType = *p.PropertyType
	}
	if p.Condition != nil {
		r.Condition = *p.Condition
	}
	if p.Value != nil {
		r.Value = *p.Value
	}
	if p.IsNot != nil {
		r.IsNot = *p.IsNot
	}
	return r
}

// rewrite applies fn to the group with id anywhere under g, rebuilding only
// the path from g to it.
func rewrite(g *Group, id string, fn func(*Group) *Group) *Group {
	if g.ID == id {
		return fn(g)
	}
	var children []Node
	for i, c := range g.Children {
		sub, ok := c.(*Group)
		if !ok {
			continue
		}
		next := rewrite(sub, id, fn)
		if next == sub {
			continue
		}
		if children == nil {
			children = slices.Clone(g.Children)
		}
		children[i] = next
	}
	if children == nil {
		return g
	}
	cp := *g
	cp.Children = children
	return &cp
}

// UpdateGroup merges patch into the group with groupID.
func UpdateGroup(root *Group, groupID string, patch GroupPatch) *Group {
	return rewrite(root, groupID, func(g *Group) *Group {
		cp := *g
		if patch.LogicalOperator != nil {
			cp.LogicalOperator = *patch.LogicalOperator
		}
		if patch.IsNot != nil {
			cp.IsNot = *patch.IsNot
		}
		return &cp
	})
}

// AddRule appends a blank rule with ruleID to the group with groupID.
func AddRule(root *Group, groupID, ruleID string) *Group {
	return rewrite(root, groupID, func(g *Group) *Group {
		cp := *g
		cp.Children = append(slices.Clip(g.Children), &Rule{ID: ruleID})
		return &cp
	})
}

// AddSubgroup appends an empty group with subID under the group with groupID
// when that group's level is below maxDepth-1. Otherwise the tree is returned
// unchanged together with a *DepthLimitError.
func AddSubgroup(root *Group, groupID, subID string, maxDepth int) (*Group, error) {
	var err error
	next := rewrite(root, groupID, func(g *Group) *Group {
		if g.Level >= maxDepth-1 {
			err = &DepthLimitError{Level: g.Level + 1, Max: maxDepth}
			return g
		}
		cp := *g
		cp.Children = append(slices.Clip(g.Children), &Group{
			ID:              subID,
			LogicalOperator: catalog.DefaultLogicalOperator,
			Level:           g.Level + 1,
		})
		return &cp
	})
	return next, err
}

// UpdateRule merges patch into the rule with ruleID that is a direct child
// of the group with groupID.
func UpdateRule(root *Group, groupID, ruleID string, patch RulePatch) *Group {
	return rewrite(root, groupID, func(g *Group) *Group {
		idx := slices.IndexFunc(g.Children, func(n Node) bool {
			_, isRule := n.(*Rule)
			return isRule && n.NodeID() == ruleID
		})
		if idx < 0 {
			return g
		}
		next := patch.apply(*g.Children[idx].(*Rule))
		cp := *g
		cp.Children = slices.Clone(g.Children)
		cp.Children[idx] = &next
		return &cp
	})
}

// RemoveRule drops the rule with ruleID from the group with groupID.
func RemoveRule(root *Group, groupID, ruleID string) *Group {
	return rewrite(root, groupID, func(g *Group) *Group {
		idx := slices.IndexFunc(g.Children, func(n Node) bool {
			_, isRule := n.(*Rule)
			return isRule && n.NodeID() == ruleID
		})
		if idx < 0 {
			return g
		}
		cp := *g
		cp.Children = slices.Delete(slices.Clone(g.Children), idx, idx+1)
		return &cp
	})
}

// RemoveGroup detaches the group with groupID, and with it all of its
// descendants, wherever it occurs below root. The root itself is never removed.
func RemoveGroup(root *Group, groupID string) *Group {
	if root.ID == groupID {
		return root
	}
	return removeGroup(root, groupID)
}

func removeGroup(g *Group, groupID string) *Group {
	changed := false
	children := make([]Node, 0, len(g.Children))
	for _, c := range g.Children {
		sub, ok := c.(*Group)
		if !ok {
			children = append(children, c)
			continue
		}
		if sub.ID == groupID {
			changed = true
			continue
		}
		next := removeGroup(sub, groupID)
		if next != sub {
			changed = true
		}
		children = append(children, next)
	}
	if !changed {
		return g
	}
	cp := *g
	cp.Children = children
	return &cp
}

// Find returns the node with id anywhere in the tree, root included.
func Find(root *Group, id string) (Node, bool) {
	if root.ID == id {
		return root, true
	}
	for _, c := range root.Children {
		if c.NodeID() == id {
			return c, true
		}
		if sub, ok := c.(*Group); ok {
			if n, found := Find(sub, id); found {
				return n, true
			}
		}
	}
	return nil, false
}

// FindRule returns the rule with ruleID among the direct children of groupID.
func FindRule(root *Group, groupID, ruleID string) (*Rule, bool) {
	n, ok := Find(root, groupID)
	if !ok {
		return nil, false
	}
	g, ok := n.(*Group)
	if !ok {
		return nil, false
	}
	for _, c := range g.Children {
		if r, isRule := c.(*Rule); isRule && r.ID == ruleID {
			return r, true
		}
	}
	return nil, false
}

// Walk visits every node depth-first, parents before children.
func Walk(n Node, fn func(Node)) {
	fn(n)
	if g, ok := n.(*Group); ok {
		for _, c := range g.Children {
			Walk(c, fn)
		}
	}
}

// Depth returns the number of group levels in the tree, root included.
func Depth(g *Group) int {
	deepest := 0
	for _, c := range g.Children {
		if sub, ok := c.(*Group); ok {
			deepest = max(deepest, Depth(sub))
		}
	}
	return deepest + 1
}
