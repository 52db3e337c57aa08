package rows

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
)

// MemoryStore implements Store using an in-memory slice.
// Text matching is case-insensitive for contains, starts_with and
// ends_with, like SQLite's LIKE.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  int
	catalog *catalog.Catalog
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore(c *catalog.Catalog) *MemoryStore {
	return &MemoryStore{catalog: c, nextID: 1}
}

func (s *MemoryStore) Insert(_ context.Context, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID == 0 {
			r.ID = s.nextID
		}
		s.nextID = max(s.nextID, r.ID+1)
		r.Tags = slices.Clone(r.Tags)
		if r.Tags == nil {
			r.Tags = []string{}
		}
		s.records = append(s.records, r)
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	if err := CheckDepth(q.Filter, q.MaxNestingLevel); err != nil {
		return nil, err
	}
	match := func(Record) bool { return true }
	if q.Filter != nil {
		m, err := s.matcher(q.Filter)
		if err != nil {
			return nil, err
		}
		match = m
	}

	s.mu.RLock()
	matched := []Record{}
	for _, r := range s.records {
		if match(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	var sortField *field
	if q.Sort != nil {
		fd, err := resolveField(s.catalog, q.Sort.Property)
		if err != nil {
			return nil, err
		}
		sortField = &fd
	}
	slices.SortStableFunc(matched, func(a, b Record) int {
		if sortField != nil {
			c := compareField(*sortField, a, b)
			if q.Sort.Direction == Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return matched, nil
}

func (s *MemoryStore) matcher(f payload.Filter) (func(Record) bool, error) {
	switch f := f.(type) {
	case *payload.CompoundFilter:
		children := make([]func(Record) bool, 0, len(f.Filters))
		for _, child := range f.Filters {
			m, err := s.matcher(child)
			if err != nil {
				return nil, err
			}
			children = append(children, m)
		}
		if f.Operator == catalog.Or {
			return func(r Record) bool {
				return slices.ContainsFunc(children, func(m func(Record) bool) bool { return m(r) })
			}, nil
		}
		return func(r Record) bool {
			for _, m := range children {
				if !m(r) {
					return false
				}
			}
			return true
		}, nil
	case *payload.PropertyFilter:
		fd, v, err := resolveFilter(s.catalog, f)
		if err != nil {
			return nil, err
		}
		return conditionMatcher(fd, f.Condition, v)
	default:
		return nil, fmt.Errorf("%w: unexpected filter %T", payload.ErrInvalidFilter, f)
	}
}

func conditionMatcher(fd field, cond string, v any) (func(Record) bool, error) {
	switch fd.typ {
	case catalog.Checkbox:
		want, _ := v.(bool)
		switch cond {
		case "equals":
			return func(r Record) bool { return r.FollowUp == want }, nil
		case "does_not_equal":
			return func(r Record) bool { return r.FollowUp != want }, nil
		}

	case catalog.Number:
		n, _ := v.(float64)
		cmpWith := func(pred func(float64) bool) func(Record) bool {
			return func(r Record) bool { return r.EstimatedValue != nil && pred(*r.EstimatedValue) }
		}
		switch cond {
		case "equals":
			return cmpWith(func(x float64) bool { return x == n }), nil
		case "does_not_equal":
			return cmpWith(func(x float64) bool { return x != n }), nil
		case "greater_than":
			return cmpWith(func(x float64) bool { return x > n }), nil
		case "less_than":
			return cmpWith(func(x float64) bool { return x < n }), nil
		case "greater_than_or_equal_to":
			return cmpWith(func(x float64) bool { return x >= n }), nil
		case "less_than_or_equal_to":
			return cmpWith(func(x float64) bool { return x <= n }), nil
		case "is_empty":
			return func(r Record) bool { return r.EstimatedValue == nil }, nil
		case "is_not_empty":
			return func(r Record) bool { return r.EstimatedValue != nil }, nil
		}

	case catalog.Date, catalog.Timestamp:
		d, _ := v.(string)
		switch cond {
		case "equals":
			return func(r Record) bool { return r.CloseDate == d }, nil
		case "not_equals_date":
			return func(r Record) bool { return r.CloseDate != d }, nil
		case "before":
			return func(r Record) bool { return r.CloseDate != "" && r.CloseDate < d }, nil
		case "after":
			return func(r Record) bool { return r.CloseDate > d }, nil
		case "on_or_before":
			return func(r Record) bool { return r.CloseDate != "" && r.CloseDate <= d }, nil
		case "on_or_after":
			return func(r Record) bool { return r.CloseDate >= d }, nil
		case "is_empty":
			return func(r Record) bool { return r.CloseDate == "" }, nil
		case "is_not_empty":
			return func(r Record) bool { return r.CloseDate != "" }, nil
		}

	case catalog.MultiSelect:
		tag, _ := v.(string)
		has := func(r Record) bool {
			return slices.ContainsFunc(r.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
		}
		switch cond {
		case "contains":
			return has, nil
		case "does_not_contain":
			return func(r Record) bool { return !has(r) }, nil
		case "is_empty":
			return func(r Record) bool { return len(r.Tags) == 0 }, nil
		case "is_not_empty":
			return func(r Record) bool { return len(r.Tags) > 0 }, nil
		}

	default:
		s, _ := v.(string)
		lower := strings.ToLower(s)
		get := func(r Record) string { return textField(fd.column, r) }
		switch cond {
		case "equals":
			return func(r Record) bool { return get(r) == s }, nil
		case "does_not_equal":
			return func(r Record) bool { return get(r) != s }, nil
		case "contains":
			return func(r Record) bool { return strings.Contains(strings.ToLower(get(r)), lower) }, nil
		case "does_not_contain":
			return func(r Record) bool { return !strings.Contains(strings.ToLower(get(r)), lower) }, nil
		case "starts_with":
			return func(r Record) bool { return strings.HasPrefix(strings.ToLower(get(r)), lower) }, nil
		case "ends_with":
			return func(r Record) bool { return strings.HasSuffix(strings.ToLower(get(r)), lower) }, nil
		case "is_empty":
			return func(r Record) bool { return get(r) == "" }, nil
		case "is_not_empty":
			return func(r Record) bool { return get(r) != "" }, nil
		}
	}
	return nil, fmt.Errorf("%w %q for %s", ErrUnsupportedCondition, cond, fd.typ)
}

func textField(column string, r Record) string {
	switch column {
	case "name":
		return r.Name
	case "company":
		return r.Company
	case "status":
		return r.Status
	case "priority":
		return r.Priority
	case "account_owner":
		return r.AccountOwner
	case "close_date":
		return r.CloseDate
	default:
		return ""
	}
}

// compareField orders records the way SQLite orders the column: NULL
// values first, booleans as integers, tags by their JSON text.
func compareField(fd field, a, b Record) int {
	switch fd.column {
	case "estimated_value":
		switch {
		case a.EstimatedValue == nil && b.EstimatedValue == nil:
			return 0
		case a.EstimatedValue == nil:
			return -1
		case b.EstimatedValue == nil:
			return 1
		}
		return cmp.Compare(*a.EstimatedValue, *b.EstimatedValue)
	case "follow_up":
		return cmp.Compare(boolInt(a.FollowUp), boolInt(b.FollowUp))
	case "tags":
		return strings.Compare(encodeTags(a.Tags), encodeTags(b.Tags))
	default:
		return strings.Compare(textField(fd.column, a), textField(fd.column, b))
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
