// Package catalog provides the static property and condition registry used
// by the filter builder.
//
// The catalog is immutable after construction and consumed by the negation
// resolver (negatability), the compiler (inverse substitution) and the
// builder controller (option lists, property lookup).
package catalog

// PropertyType classifies a dataset property for condition applicability.
type PropertyType string

const (
	Checkbox    PropertyType = "checkbox"
	Date        PropertyType = "date"
	MultiSelect PropertyType = "multi_select"
	Number      PropertyType = "number"
	RichText    PropertyType = "rich_text"
	Select      PropertyType = "select"
	Status      PropertyType = "status"
	Timestamp   PropertyType = "timestamp"
)

// PropertyTypes lists every property type in declaration order.
var PropertyTypes = []PropertyType{Checkbox, Date, MultiSelect, Number, RichText, Select, Status, Timestamp}

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	for _, pt := range PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// LogicalOperator joins the children of a group.
type LogicalOperator string

const (
	And LogicalOperator = "and"
	Or  LogicalOperator = "or"
)

// Flip returns the De Morgan dual of the operator.
func (o LogicalOperator) Flip() LogicalOperator {
	if o == And {
		return Or
	}
	return And
}

// Valid reports whether o is "and" or "or".
func (o LogicalOperator) Valid() bool {
	return o == And || o == Or
}

// ValueComponent names the input widget a condition needs.
type ValueComponent string

const (
	ComponentNone     ValueComponent = ""
	ComponentText     ValueComponent = "text"
	ComponentNumber   ValueComponent = "number"
	ComponentCheckbox ValueComponent = "checkbox"
	ComponentDate     ValueComponent = "date"
	ComponentSelect   ValueComponent = "select"
)

const (
	// MaxFilterDepth is the number of group levels a tree may hold,
	// root included.
	MaxFilterDepth = 2

	// DefaultLogicalOperator is used for new groups.
	DefaultLogicalOperator = And
)

// PropertyDefinition describes one filterable property.
type PropertyDefinition struct {
	Label   string       `json:"label"`
	Value   string       `json:"value"`
	Type    PropertyType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// ConditionDefinition describes one condition and how it behaves under NOT.
// The same Value may appear several times with disjoint property types.
type ConditionDefinition struct {
	Label                   string         `json:"label"`
	Value                   string         `json:"value"`
	ApplicablePropertyTypes []PropertyType `json:"applicablePropertyTypes"`
	ValueComponent          ValueComponent `json:"valueComponent,omitempty"`
	ValuePlaceholder        string         `json:"valuePlaceholder,omitempty"`
	HideValueInput          bool           `json:"hideValueInput"`
	InverseConditionValue   string         `json:"inverseConditionValue,omitempty"`
	UnsupportedForNot       bool           `json:"unsupportedForNot"`
}

// AppliesTo reports whether the condition can be used with property type t.
func (c ConditionDefinition) AppliesTo(t PropertyType) bool {
	for _, pt := range c.ApplicablePropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// Catalog holds property and condition definitions in declaration order.
// It is safe for concurrent read access.
type Catalog struct {
	properties []PropertyDefinition
	conditions []ConditionDefinition
	byValue    map[string]int // property value -> index
}

// New creates a catalog from the given definitions. Order is preserved.
func New(properties []PropertyDefinition, conditions []ConditionDefinition) *Catalog {
	c := &Catalog{
		properties: properties,
		conditions: conditions,
		byValue:    make(map[string]int, len(properties)),
	}
	for i, p := range properties {
		if _, dup := c.byValue[p.Value]; !dup {
			c.byValue[p.Value] = i
		}
	}
	return c
}

// Properties returns all property definitions.
func (c *Catalog) Properties() []PropertyDefinition {
	return c.properties
}

// Conditions returns all condition definitions.
func (c *Catalog) Conditions() []ConditionDefinition {
	return c.conditions
}

// ConditionsFor returns the conditions applicable to t in declaration order.
func (c *Catalog) ConditionsFor(t PropertyType) []ConditionDefinition {
	var out []ConditionDefinition
	for _, cd := range c.conditions {
		if cd.AppliesTo(t) {
			out = append(out, cd)
		}
	}
	return out
}

// Property looks up a property by identifier.
func (c *Catalog) Property(value string) (PropertyDefinition, bool) {
	i, ok := c.byValue[value]
	if !ok {
		return PropertyDefinition{}, false
	}
	return c.properties[i], true
}

// Condition looks up a condition by identifier. When t is non-empty only
// conditions applicable to t are considered; otherwise the first entry with
// that identifier wins, which is ambiguous for overloaded identifiers.
func (c *Catalog) Condition(value string, t PropertyType) (ConditionDefinition, bool) {
	for _, cd := range c.conditions {
		if cd.Value != value {
			continue
		}
		if t != "" && !cd.AppliesTo(t) {
			continue
		}
		return cd, true
	}
	return ConditionDefinition{}, false
}
