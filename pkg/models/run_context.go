package models

import (
	"strconv"
	"strings"
)

// StepResultKeyPrefix prefixes the context key each executed node's result
// fragment is merged under.
const StepResultKeyPrefix = "step_"

// RunContext is the accumulated state of a run. Payload carries the
// triggering business event, Contact the CRM contact the run concerns, and
// Steps the result fragment of every executed node keyed by
// "step_<nodeID>". The context is append/merge-only: fragments are added,
// never deleted.
type RunContext struct {
	Payload map[string]any            `json:"payload,omitempty"`
	Contact map[string]any            `json:"contact,omitempty"`
	Steps   map[string]map[string]any `json:"steps,omitempty"`
}

// MergeStep records a node's result fragment under step_<nodeID>.
// Re-merging the same node (a replayed batch after a crash) overwrites the
// fragment, keeping resumption idempotent.
func (c *RunContext) MergeStep(nodeID string, fragment map[string]any) {
	if c.Steps == nil {
		c.Steps = make(map[string]map[string]any)
	}

	c.Steps[StepResultKeyPrefix+nodeID] = fragment
}

// StepResult returns the fragment a node produced, if any.
func (c *RunContext) StepResult(nodeID string) (map[string]any, bool) {
	fragment, ok := c.Steps[StepResultKeyPrefix+nodeID]

	return fragment, ok
}

// Resolve looks up a dotted path in the context. Paths with an explicit
// "payload." or "contact." prefix resolve against that section; step result
// keys ("step_<id>.field") resolve against Steps. A bare path tries payload,
// then contact, then the context root, first match wins.
func (c *RunContext) Resolve(path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")

	switch {
	case segments[0] == "payload":
		return lookupPath(c.Payload, segments[1:])
	case segments[0] == "contact":
		return lookupPath(c.Contact, segments[1:])
	case strings.HasPrefix(segments[0], StepResultKeyPrefix):
		step, ok := c.Steps[segments[0]]
		if !ok {
			return nil, false
		}

		return lookupPath(step, segments[1:])
	}

	if v, ok := lookupPath(c.Payload, segments); ok {
		return v, true
	}

	if v, ok := lookupPath(c.Contact, segments); ok {
		return v, true
	}

	return lookupPath(c.root(), segments)
}

// root exposes the whole context as a single map for bare lookups.
func (c *RunContext) root() map[string]any {
	root := map[string]any{
		"payload": c.Payload,
		"contact": c.Contact,
	}
	for key, fragment := range c.Steps {
		root[key] = fragment
	}

	return root
}

// lookupPath walks a nested map/slice structure. An empty segment list
// returns the value itself.
func lookupPath(value any, segments []string) (any, bool) {
	if value == nil {
		return nil, false
	}

	current := value

	for _, segment := range segments {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}

			current = v[idx]
		default:
			return nil, false
		}
	}

	return current, true
}
