// Package payload defines the wire filter format sent to the query
// endpoint: single-property conditions and compound and/or filters.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
)

// ErrInvalidFilter is wrapped by every decoding failure.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter is a *PropertyFilter or a *CompoundFilter.
type Filter interface {
	json.Marshaler
	isFilter()
}

// PropertyFilter is {"property": P, "<type>": {"<condition>": value}}.
type PropertyFilter struct {
	Property  string
	Type      catalog.PropertyType
	Condition string
	Value     any // nil, bool, float64 or string
}

func (*PropertyFilter) isFilter() {}

func (f *PropertyFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"property":     f.Property,
		string(f.Type): map[string]any{f.Condition: f.Value},
	})
}

// CompoundFilter is {"and": [...]} or {"or": [...]}.
type CompoundFilter struct {
	Operator catalog.LogicalOperator
	Filters  []Filter
}

func (*CompoundFilter) isFilter() {}

func (f *CompoundFilter) MarshalJSON() ([]byte, error) {
	filters := f.Filters
	if filters == nil {
		filters = []Filter{}
	}
	return json.Marshal(map[string][]Filter{string(f.Operator): filters})
}

// Payload is the body sent to the query endpoint. A nil Filter means an
// unfiltered query.
type Payload struct {
	Filter          Filter `json:"filter,omitempty"`
	MaxNestingLevel int    `json:"maxNestingLevel,omitempty"`
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Filter          json.RawMessage `json:"filter"`
		MaxNestingLevel int             `json:"maxNestingLevel"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.MaxNestingLevel = raw.MaxNestingLevel
	p.Filter = nil
	if len(raw.Filter) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Filter), []byte("null")) {
		f, err := Parse(raw.Filter)
		if err != nil {
			return err
		}
		p.Filter = f
	}
	return nil
}

// Parse decodes a wire filter object.
func Parse(data []byte) (Filter, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if prop, ok := obj["property"]; ok {
		return parseProperty(prop, obj)
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: compound filter must have exactly one of \"and\", \"or\"", ErrInvalidFilter)
	}
	for key, raw := range obj {
		op := catalog.LogicalOperator(key)
		if !op.Valid() {
			return nil, fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %q must be an array", ErrInvalidFilter, key)
		}
		cf := &CompoundFilter{Operator: op, Filters: make([]Filter, 0, len(items))}
		for _, item := range items {
			child, err := Parse(item)
			if err != nil {
				return nil, err
			}
			cf.Filters = append(cf.Filters, child)
		}
		return cf, nil
	}
	return nil, fmt.Errorf("%w: empty filter object", ErrInvalidFilter)
}

func parseProperty(prop json.RawMessage, obj map[string]json.RawMessage) (Filter, error) {
	var name string
	if err := json.Unmarshal(prop, &name); err != nil || name == "" {
		return nil, fmt.Errorf("%w: \"property\" must be a non-empty string", ErrInvalidFilter)
	}
	if len(obj) != 2 {
		return nil, fmt.Errorf("%w: property filter %q must have exactly one type key", ErrInvalidFilter, name)
	}
	for key, raw := range obj {
		if key == "property" {
			continue
		}
		pt := catalog.PropertyType(key)
		if !pt.Valid() {
			return nil, fmt.Errorf("%w: unknown property type %q", ErrInvalidFilter, key)
		}
		var cond map[string]any
		if err := json.Unmarshal(raw, &cond); err != nil || len(cond) != 1 {
			return nil, fmt.Errorf("%w: %q condition must be an object with one key", ErrInvalidFilter, key)
		}
		for c, v := range cond {
			return &PropertyFilter{Property: name, Type: pt, Condition: c, Value: v}, nil
		}
	}
	return nil, fmt.Errorf("%w: property filter %q has no type key", ErrInvalidFilter, name)
}

// Depth returns the number of nested compound levels in f.
func Depth(f Filter) int {
	cf, ok := f.(*CompoundFilter)
	if !ok {
		return 0
	}
	deepest := 0
	for _, c := range cf.Filters {
		deepest = max(deepest, Depth(c))
	}
	return deepest + 1
}
