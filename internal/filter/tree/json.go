package tree

import (
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
)

type ruleJSON struct {
	ID           string               `json:"id"`
	Type         NodeType             `json:"type"`
	Property     string               `json:"property,omitempty"`
	PropertyType catalog.PropertyType `json:"propertyType,omitempty"`
	Condition    string               `json:"condition,omitempty"`
	Value        *Value               `json:"value,omitempty"`
	IsNot        bool                 `json:"isNot"`
}

type groupJSON struct {
	ID              string                  `json:"id"`
	Type            NodeType                `json:"type"`
	LogicalOperator catalog.LogicalOperator `json:"logicalOperator"`
	Children        []json.RawMessage       `json:"children"`
	Level           int                     `json:"level"`
	IsNot           bool                    `json:"isNot"`
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{
		ID:           r.ID,
		Type:         TypeRule,
		Property:     r.Property,
		PropertyType: r.PropertyType,
		Condition:    r.Condition,
		IsNot:        r.IsNot,
	}
	if !r.Value.IsNone() {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Type != "" && in.Type != TypeRule {
		return fmt.Errorf("node %q: expected type %q, got %q", in.ID, TypeRule, in.Type)
	}
	*r = Rule{
		ID:           in.ID,
		Property:     in.Property,
		PropertyType: in.PropertyType,
		Condition:    in.Condition,
		IsNot:        in.IsNot,
	}
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}

func (g *Group) MarshalJSON() ([]byte, error) {
	children := make([]json.RawMessage, len(g.Children))
	for i, c := range g.Children {
		b, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		children[i] = b
	}
	return json.Marshal(groupJSON{
		ID:              g.ID,
		Type:            TypeGroup,
		LogicalOperator: g.LogicalOperator,
		Children:        children,
		Level:           g.Level,
		IsNot:           g.IsNot,
	})
}

func (g *Group) UnmarshalJSON(data []byte) error {
	var in groupJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Type != "" && in.Type != TypeGroup {
		return fmt.Errorf("node %q: expected type %q, got %q", in.ID, TypeGroup, in.Type)
	}
	op := in.LogicalOperator
	if op == "" {
		op = catalog.DefaultLogicalOperator
	}
	if !op.Valid() {
		return fmt.Errorf("group %q: invalid logical operator %q", in.ID, op)
	}
	children := make([]Node, 0, len(in.Children))
	for _, raw := range in.Children {
		n, err := decodeNode(raw)
		if err != nil {
			return err
		}
		children = append(children, n)
	}
	*g = Group{
		ID:              in.ID,
		LogicalOperator: op,
		Children:        children,
		Level:           in.Level,
		IsNot:           in.IsNot,
	}
	return nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var head struct {
		Type NodeType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case TypeRule:
		var r Rule
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		return &r, nil
	case TypeGroup:
		var g Group
		if err := json.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		return &g, nil
	default:
		return nil, fmt.Errorf("unknown node type %q", head.Type)
	}
}

// Parse decodes a root group and checks that child levels are consistent,
// that every node has a unique non-empty id and that the tree holds at most
// maxDepth group levels. A tree that is too deep yields a *DepthLimitError.
func Parse(data []byte, maxDepth int) (*Group, error) {
	var root Group
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding filter tree: %w", err)
	}
	if root.Level != 0 {
		return nil, fmt.Errorf("root group %q must be at level 0, got %d", root.ID, root.Level)
	}
	if err := checkLevels(&root); err != nil {
		return nil, err
	}
	if err := checkIDs(&root); err != nil {
		return nil, err
	}
	if depth := Depth(&root); depth > maxDepth {
		return nil, &DepthLimitError{Level: depth - 1, Max: maxDepth}
	}
	return &root, nil
}

func checkIDs(root *Group) error {
	seen := make(map[string]bool)
	var err error
	Walk(root, func(n Node) {
		if err != nil {
			return
		}
		id := n.NodeID()
		switch {
		case id == "":
			err = fmt.Errorf("%s without id", n.NodeType())
		case seen[id]:
			err = fmt.Errorf("duplicate node id %q", id)
		}
		seen[id] = true
	})
	return err
}

func checkLevels(g *Group) error {
	for _, c := range g.Children {
		sub, ok := c.(*Group)
		if !ok {
			continue
		}
		if sub.Level != g.Level+1 {
			return fmt.Errorf("group %q: level %d, want %d", sub.ID, sub.Level, g.Level+1)
		}
		if err := checkLevels(sub); err != nil {
			return err
		}
	}
	return nil
}
