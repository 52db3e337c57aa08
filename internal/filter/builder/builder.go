// Package builder holds one editable filter tree and turns it into a query
// payload on apply.
//
// Every edit replaces the held tree with a new snapshot; readers that took
// a snapshot with Tree keep a consistent view. Apply validates negation,
// compiles, and hands the payload to the configured callback.
package builder

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/compiler"
	"github.com/matthewbaird/tablefilter/internal/filter/negation"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
)

// State is the controller's apply state.
type State string

const (
	StateEditing  State = "editing"
	StateApplied  State = "applied"
	StateRejected State = "rejected"
)

// Controller owns a filter tree for one editing session. It is safe for
// concurrent use.
type Controller struct {
	mu    sync.Mutex
	root  *tree.Group
	state State

	catalog  *catalog.Catalog
	resolver *negation.Resolver
	compiler *compiler.Compiler
	ids      *tree.IDGenerator
	maxDepth int

	initial *tree.Group
	onApply func(payload.Payload)
	onClose func()
	logger  zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithInitialTree starts the controller from root instead of an empty root.
func WithInitialTree(root *tree.Group) Option {
	return func(c *Controller) { c.initial = root }
}

// WithIDGenerator sets the session id generator.
func WithIDGenerator(ids *tree.IDGenerator) Option {
	return func(c *Controller) { c.ids = ids }
}

// WithMaxDepth overrides catalog.MaxFilterDepth.
func WithMaxDepth(depth int) Option {
	return func(c *Controller) { c.maxDepth = depth }
}

// WithApplyFunc registers the collaborator that receives applied payloads.
func WithApplyFunc(fn func(payload.Payload)) Option {
	return func(c *Controller) { c.onApply = fn }
}

// WithCloseFunc registers a callback run after a successful apply.
func WithCloseFunc(fn func()) Option {
	return func(c *Controller) { c.onClose = fn }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a controller over cat.
func New(cat *catalog.Catalog, opts ...Option) *Controller {
	c := &Controller{
		state:    StateEditing,
		catalog:  cat,
		maxDepth: catalog.MaxFilterDepth,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = tree.NewIDGenerator(1)
	}
	c.resolver = negation.New(cat)
	c.compiler = compiler.New(cat, c.maxDepth)
	c.logger = c.logger.With().Str("component", "builder").Logger()

	c.root = c.initial
	if c.root == nil {
		c.root = tree.NewRoot(c.ids.GroupID())
	}
	return c
}

// Tree returns the current snapshot.
func (c *Controller) Tree() *tree.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// State returns the apply state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Empty reports whether the root has no children.
func (c *Controller) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.root.Children) == 0
}

// Negations returns the effective NOT state of every node in the current
// tree, keyed by node id.
func (c *Controller) Negations() map[string]bool {
	return c.resolver.Resolve(c.Tree())
}

// Catalog returns the catalog the controller was built with.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// MaxDepth returns the number of group levels the tree may hold.
func (c *Controller) MaxDepth() int {
	return c.maxDepth
}

// commit replaces the tree. Callers hold mu.
func (c *Controller) commit(next *tree.Group) {
	c.root = next
	c.state = StateEditing
}

func (c *Controller) group(id string) (*tree.Group, error) {
	n, ok := tree.Find(c.root, id)
	if !ok {
		return nil, fmt.Errorf("group %q: %w", id, ErrNodeNotFound)
	}
	g, ok := n.(*tree.Group)
	if !ok {
		return nil, fmt.Errorf("group %q: %w", id, ErrNodeNotFound)
	}
	return g, nil
}

func (c *Controller) rule(groupID, ruleID string) (*tree.Rule, error) {
	r, ok := tree.FindRule(c.root, groupID, ruleID)
	if !ok {
		return nil, fmt.Errorf("rule %q in group %q: %w", ruleID, groupID, ErrNodeNotFound)
	}
	return r, nil
}

// UpdateGroup merges patch into a group.
func (c *Controller) UpdateGroup(groupID string, patch tree.GroupPatch) error {
	if patch.LogicalOperator != nil && !patch.LogicalOperator.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, *patch.LogicalOperator)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.group(groupID); err != nil {
		return err
	}
	c.commit(tree.UpdateGroup(c.root, groupID, patch))
	return nil
}

// AddRule appends a blank rule to a group and returns its id.
func (c *Controller) AddRule(groupID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.group(groupID); err != nil {
		return "", err
	}
	id := c.ids.RuleID()
	c.commit(tree.AddRule(c.root, groupID, id))
	return id, nil
}

// AddSubgroup appends an empty subgroup and returns its id. At the depth
// limit the tree is left unchanged and a *tree.DepthLimitError is returned.
func (c *Controller) AddSubgroup(groupID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, err := c.group(groupID)
	if err != nil {
		return "", err
	}
	if g.Level >= c.maxDepth-1 {
		c.logger.Debug().Str("group_id", groupID).Int("level", g.Level).Msg("subgroup rejected at depth limit")
		return "", &tree.DepthLimitError{Level: g.Level + 1, Max: c.maxDepth}
	}
	id := c.ids.GroupID()
	next, err := tree.AddSubgroup(c.root, groupID, id, c.maxDepth)
	if err != nil {
		return "", err
	}
	c.commit(next)
	return id, nil
}

// UpdateRule merges patch into a rule. When the patch changes the property
// without naming its type, the type is taken from the catalog.
func (c *Controller) UpdateRule(groupID, ruleID string, patch tree.RulePatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateRule(groupID, ruleID, patch)
}

func (c *Controller) updateRule(groupID, ruleID string, patch tree.RulePatch) error {
	if _, err := c.rule(groupID, ruleID); err != nil {
		return err
	}
	if patch.Property != nil && patch.PropertyType == nil {
		def, err := c.property(*patch.Property)
		if err != nil {
			return err
		}
		patch.PropertyType = &def.Type
	}
	c.commit(tree.UpdateRule(c.root, groupID, ruleID, patch))
	return nil
}

func (c *Controller) property(id string) (catalog.PropertyDefinition, error) {
	def, ok := c.catalog.Property(id)
	if !ok {
		if hint := c.catalog.SuggestProperty(id); hint != "" {
			return def, fmt.Errorf("%w %q, did you mean '%s'?", ErrUnknownProperty, id, hint)
		}
		return def, fmt.Errorf("%w %q", ErrUnknownProperty, id)
	}
	return def, nil
}

// ChangeProperty points a rule at another property. Condition and value
// are cleared.
func (c *Controller) ChangeProperty(groupID, ruleID, propertyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.rule(groupID, ruleID); err != nil {
		return err
	}
	def, err := c.property(propertyID)
	if err != nil {
		return err
	}
	cleared, none := "", tree.None
	c.commit(tree.UpdateRule(c.root, groupID, ruleID, tree.RulePatch{
		Property:     &def.Value,
		PropertyType: &def.Type,
		Condition:    &cleared,
		Value:        &none,
	}))
	return nil
}

// ChangeCondition sets a rule's condition. The value is cleared when the
// condition hides its input or needs a different input than before;
// checkbox conditions start unchecked.
func (c *Controller) ChangeCondition(groupID, ruleID, conditionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.rule(groupID, ruleID)
	if err != nil {
		return err
	}
	next, ok := c.catalog.Condition(conditionID, r.PropertyType)
	if !ok || r.PropertyType == "" {
		return fmt.Errorf("%w %q for property type %q", ErrUnknownCondition, conditionID, r.PropertyType)
	}

	value := r.Value
	prev, hadPrev := c.catalog.Condition(r.Condition, r.PropertyType)
	switch {
	case next.HideValueInput:
		value = tree.None
	case r.PropertyType == catalog.Checkbox:
		value = tree.Bool(false)
	case hadPrev && prev.ValueComponent != next.ValueComponent:
		value = tree.None
	}
	c.commit(tree.UpdateRule(c.root, groupID, ruleID, tree.RulePatch{Condition: &next.Value, Value: &value}))
	return nil
}

// RemoveRule drops a rule from its group.
func (c *Controller) RemoveRule(groupID, ruleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.rule(groupID, ruleID); err != nil {
		return err
	}
	c.commit(tree.RemoveRule(c.root, groupID, ruleID))
	return nil
}

// RemoveGroup drops a group and everything under it.
func (c *Controller) RemoveGroup(groupID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if groupID == c.root.ID {
		return ErrRootNotRemovable
	}
	if _, err := c.group(groupID); err != nil {
		return err
	}
	c.commit(tree.RemoveGroup(c.root, groupID))
	return nil
}

// Reset replaces the tree with a fresh empty root.
func (c *Controller) Reset() *tree.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(tree.NewRoot(c.ids.GroupID()))
	return c.root
}

// Apply validates and compiles the current tree. On success the payload is
// passed to the apply callback and the close callback runs. On failure the
// tree is unchanged and the error is an *UnsupportedNotError or wraps
// ErrEmptyFilter.
func (c *Controller) Apply() (payload.Payload, error) {
	c.mu.Lock()
	root := c.root

	if bad := c.resolver.Collect(root); len(bad) > 0 {
		c.state = StateRejected
		c.mu.Unlock()
		c.logger.Info().Strs("conditions", bad).Msg("apply rejected: unsupported negation")
		return payload.Payload{}, &UnsupportedNotError{Conditions: bad}
	}

	p := c.compiler.Payload(root)
	if p.Filter == nil && len(root.Children) > 0 {
		c.state = StateRejected
		c.mu.Unlock()
		c.logger.Info().Str("root_id", root.ID).Msg("apply rejected: tree compiles to an empty filter")
		return payload.Payload{}, ErrEmptyFilter
	}

	c.state = StateApplied
	onApply, onClose := c.onApply, c.onClose
	c.mu.Unlock()

	c.logger.Debug().Bool("filtered", p.Filter != nil).Msg("filter applied")
	if onApply != nil {
		onApply(p)
	}
	if onClose != nil {
		onClose()
	}
	return p, nil
}
