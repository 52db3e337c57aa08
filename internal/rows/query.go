package rows

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
)

var (
	ErrUnknownProperty      = errors.New("unknown property")
	ErrUnsupportedCondition = errors.New("unsupported condition")
	ErrInvalidValue         = errors.New("invalid filter value")
)

// Direction orders query results.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Sort orders results by one property.
type Sort struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction,omitempty"`
}

// Query is a request to the query endpoint: the outbound filter payload
// plus an optional sort.
type Query struct {
	Filter          payload.Filter
	MaxNestingLevel int
	Sort            *Sort
}

type queryJSON struct {
	Filter          payload.Filter `json:"filter,omitempty"`
	MaxNestingLevel int            `json:"maxNestingLevel,omitempty"`
	Sort            *Sort          `json:"sort,omitempty"`
}

func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(queryJSON(q))
}

func (q *Query) UnmarshalJSON(data []byte) error {
	var raw struct {
		Filter          json.RawMessage `json:"filter"`
		MaxNestingLevel int             `json:"maxNestingLevel"`
		Sort            *Sort           `json:"sort"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*q = Query{MaxNestingLevel: raw.MaxNestingLevel, Sort: raw.Sort}
	if len(raw.Filter) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Filter), []byte("null")) {
		f, err := payload.Parse(raw.Filter)
		if err != nil {
			return err
		}
		q.Filter = f
	}
	return nil
}

// FromPayload builds a query from a compiled payload.
func FromPayload(p payload.Payload, sort *Sort) Query {
	return Query{Filter: p.Filter, MaxNestingLevel: p.MaxNestingLevel, Sort: sort}
}

// columns maps property ids to record columns.
var columns = map[string]string{
	"Name":            "name",
	"Company":         "company",
	"Status":          "status",
	"Priority":        "priority",
	"Estimated Value": "estimated_value",
	"Account Owner":   "account_owner",
	"Follow Up":       "follow_up",
	"Close Date":      "close_date",
	"Tags":            "tags",
}

// field is a resolved filter or sort target.
type field struct {
	property string
	column   string
	typ      catalog.PropertyType
}

func resolveField(c *catalog.Catalog, property string) (field, error) {
	def, ok := c.Property(property)
	col, mapped := columns[property]
	if !ok || !mapped {
		return field{}, fmt.Errorf("%w %q", ErrUnknownProperty, property)
	}
	return field{property: property, column: col, typ: def.Type}, nil
}

// resolveFilter checks a property filter against the catalog and returns
// its target with the value coerced to the property type.
func resolveFilter(c *catalog.Catalog, f *payload.PropertyFilter) (field, any, error) {
	fd, err := resolveField(c, f.Property)
	if err != nil {
		return field{}, nil, err
	}
	if f.Type != fd.typ {
		return field{}, nil, fmt.Errorf("%w: %q is %s, not %s", ErrUnsupportedCondition, f.Property, fd.typ, f.Type)
	}
	def, ok := c.Condition(f.Condition, fd.typ)
	if !ok {
		return field{}, nil, fmt.Errorf("%w %q for %s", ErrUnsupportedCondition, f.Condition, fd.typ)
	}
	if def.HideValueInput {
		return fd, nil, nil
	}
	v, err := coerce(fd, f.Value)
	if err != nil {
		return field{}, nil, err
	}
	return fd, v, nil
}

func coerce(fd field, v any) (any, error) {
	switch fd.typ {
	case catalog.Checkbox:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed, nil
			}
		}
	case catalog.Number:
		switch n := v.(type) {
		case float64:
			return n, nil
		case string:
			if parsed, err := strconv.ParseFloat(n, 64); err == nil {
				return parsed, nil
			}
		}
	case catalog.Date, catalog.Timestamp:
		if s, ok := v.(string); ok {
			if d, ok := normalizeDate(s); ok {
				return d, nil
			}
		}
	default:
		switch s := v.(type) {
		case string:
			return s, nil
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64), nil
		}
	}
	return nil, fmt.Errorf("%w: %v for %s property %q", ErrInvalidValue, v, fd.typ, fd.property)
}

// normalizeDate reduces a date or RFC 3339 timestamp to YYYY-MM-DD.
func normalizeDate(s string) (string, bool) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.DateOnly), true
	}
	return "", false
}

// CheckDepth rejects filters nested deeper than maxNestingLevel group
// levels. Zero means catalog.MaxFilterDepth.
func CheckDepth(f payload.Filter, maxNestingLevel int) error {
	if f == nil {
		return nil
	}
	limit := maxNestingLevel
	if limit <= 0 {
		limit = catalog.MaxFilterDepth
	}
	if d := payload.Depth(f); d > limit {
		return fmt.Errorf("%w: nested %d levels deep, limit is %d", payload.ErrInvalidFilter, d, limit)
	}
	return nil
}
