package catalog

var allValueTypes = []PropertyType{Date, Timestamp, MultiSelect, Number, RichText, Select, Status}

// DefaultProperties is the fixed property list of the deals dataset.
var DefaultProperties = []PropertyDefinition{
	{Label: "Name", Value: "Name", Type: RichText},
	{Label: "Company", Value: "Company", Type: RichText},
	{Label: "Status", Value: "Status", Type: Select, Options: []string{"Closed", "Lead", "Proposal", "Lost"}},
	{Label: "Priority", Value: "Priority", Type: Select, Options: []string{"High", "Medium", "Low"}},
	{Label: "Est. Value", Value: "Estimated Value", Type: Number},
	{Label: "Account Owner", Value: "Account Owner", Type: RichText},
	{Label: "Follow Up", Value: "Follow Up", Type: Checkbox},
	{Label: "Close Date", Value: "Close Date", Type: Date},
	{Label: "Tags", Value: "Tags", Type: MultiSelect},
}

// DefaultConditions is the fixed condition list. Order drives UI option order.
var DefaultConditions = []ConditionDefinition{
	// checkbox
	{Label: "Is checked", Value: "equals", ApplicablePropertyTypes: []PropertyType{Checkbox}, ValueComponent: ComponentCheckbox, InverseConditionValue: "does_not_equal"},
	{Label: "Is not checked", Value: "does_not_equal", ApplicablePropertyTypes: []PropertyType{Checkbox}, ValueComponent: ComponentCheckbox, InverseConditionValue: "equals"},

	// date and timestamp
	{Label: "Is", Value: "equals", ApplicablePropertyTypes: []PropertyType{Date, Timestamp}, ValueComponent: ComponentDate, InverseConditionValue: "not_equals_date", UnsupportedForNot: true},
	{Label: "Is not", Value: "not_equals_date", ApplicablePropertyTypes: []PropertyType{Date, Timestamp}, ValueComponent: ComponentDate, InverseConditionValue: "equals", UnsupportedForNot: true},
	{Label: "Is before", Value: "before", ApplicablePropertyTypes: []PropertyType{Date, Timestamp}, ValueComponent: ComponentDate, InverseConditionValue: "on_or_after"},
	{Label: "Is after", Value: "after", ApplicablePropertyTypes: []PropertyType{Date, Timestamp}, ValueComponent: ComponentDate, InverseConditionValue: "on_or_before"},
	{Label: "Is on or before", Value: "on_or_before", ApplicablePropertyTypes: []PropertyType{Date, Timestamp}, ValueComponent: ComponentDate, InverseConditionValue: "after"},
	{Label: "Is on or after", Value: "on_or_after", ApplicablePropertyTypes: []PropertyType{Date, Timestamp}, ValueComponent: ComponentDate, InverseConditionValue: "before"},
	{Label: "Is empty", Value: "is_empty", ApplicablePropertyTypes: allValueTypes, HideValueInput: true, InverseConditionValue: "is_not_empty"},
	{Label: "Is not empty", Value: "is_not_empty", ApplicablePropertyTypes: allValueTypes, HideValueInput: true, InverseConditionValue: "is_empty"},

	// multi_select
	{Label: "Contains", Value: "contains", ApplicablePropertyTypes: []PropertyType{MultiSelect}, ValueComponent: ComponentText, ValuePlaceholder: "Enter value...", InverseConditionValue: "does_not_contain"},
	{Label: "Does not contain", Value: "does_not_contain", ApplicablePropertyTypes: []PropertyType{MultiSelect}, ValueComponent: ComponentText, ValuePlaceholder: "Enter value...", InverseConditionValue: "contains"},

	// number
	{Label: "Equals", Value: "equals", ApplicablePropertyTypes: []PropertyType{Number}, ValueComponent: ComponentNumber, ValuePlaceholder: "Enter number...", InverseConditionValue: "does_not_equal"},
	{Label: "Does not equal", Value: "does_not_equal", ApplicablePropertyTypes: []PropertyType{Number}, ValueComponent: ComponentNumber, ValuePlaceholder: "Enter number...", InverseConditionValue: "equals"},
	{Label: "Greater than", Value: "greater_than", ApplicablePropertyTypes: []PropertyType{Number}, ValueComponent: ComponentNumber, ValuePlaceholder: "Enter number...", InverseConditionValue: "less_than_or_equal_to"},
	{Label: "Less than", Value: "less_than", ApplicablePropertyTypes: []PropertyType{Number}, ValueComponent: ComponentNumber, ValuePlaceholder: "Enter number...", InverseConditionValue: "greater_than_or_equal_to"},
	{Label: "Greater than or equal to", Value: "greater_than_or_equal_to", ApplicablePropertyTypes: []PropertyType{Number}, ValueComponent: ComponentNumber, ValuePlaceholder: "Enter number...", InverseConditionValue: "less_than"},
	{Label: "Less than or equal to", Value: "less_than_or_equal_to", ApplicablePropertyTypes: []PropertyType{Number}, ValueComponent: ComponentNumber, ValuePlaceholder: "Enter number...", InverseConditionValue: "greater_than"},

	// rich_text, select, status
	{Label: "Is", Value: "equals", ApplicablePropertyTypes: []PropertyType{RichText, Select, Status}, ValueComponent: ComponentText, ValuePlaceholder: "Enter text...", InverseConditionValue: "does_not_equal"},
	{Label: "Is not", Value: "does_not_equal", ApplicablePropertyTypes: []PropertyType{RichText, Select, Status}, ValueComponent: ComponentText, ValuePlaceholder: "Enter text...", InverseConditionValue: "equals"},
	{Label: "Contains", Value: "contains", ApplicablePropertyTypes: []PropertyType{RichText}, ValueComponent: ComponentText, ValuePlaceholder: "Enter text...", InverseConditionValue: "does_not_contain"},
	{Label: "Does not contain", Value: "does_not_contain", ApplicablePropertyTypes: []PropertyType{RichText}, ValueComponent: ComponentText, ValuePlaceholder: "Enter text...", InverseConditionValue: "contains"},
	{Label: "Starts with", Value: "starts_with", ApplicablePropertyTypes: []PropertyType{RichText}, ValueComponent: ComponentText, ValuePlaceholder: "Enter text...", UnsupportedForNot: true},
	{Label: "Ends with", Value: "ends_with", ApplicablePropertyTypes: []PropertyType{RichText}, ValueComponent: ComponentText, ValuePlaceholder: "Enter text...", UnsupportedForNot: true},
}

// Default returns the catalog built from DefaultProperties and DefaultConditions.
func Default() *Catalog {
	return New(DefaultProperties, DefaultConditions)
}
