// Package condition evaluates "<namespace>:<key>=<value>" condition strings.
// Matching is exact string equality; there is no partial or wildcard matching.
package condition

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	NamespaceStory  = "story"
	NamespaceChoice = "choice"
	NamespaceAction = "action"

	// KeyChapter is the story key naming a completed chapter: "story:chapter=<id>"
	KeyChapter = "chapter"
)

// Condition is a parsed condition string
type Condition struct {
	Namespace string
	Key       string
	Value     string
}

func (c Condition) String() string {
	return fmt.Sprintf("%s:%s=%s", c.Namespace, c.Key, c.Value)
}

// Parse splits a condition string.
// Namespace and key must be non-empty; value may be empty.
func Parse(raw string) (Condition, error) {
	ns, rest, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || ns == "" {
		return Condition{}, fmt.Errorf("condition %q: missing namespace", raw)
	}
	key, value, ok := strings.Cut(rest, "=")
	if !ok || key == "" {
		return Condition{}, fmt.Errorf("condition %q: expected key=value", raw)
	}
	return Condition{Namespace: ns, Key: key, Value: value}, nil
}

// Context is the state conditions are evaluated against
type Context struct {
	ActionData map[string]string
	Completed  map[string]bool
	Choices    map[string]int
}

// Matches evaluates the condition against ctx.
// story:chapter=<id> checks the completed set, choice:<key>=<n> checks a recorded
// choice, and everything else is looked up in ActionData, first as "<namespace>:<key>"
// and then as the bare key.
func (c Condition) Matches(ctx Context) bool {
	switch {
	case c.Namespace == NamespaceStory && c.Key == KeyChapter:
		return ctx.Completed[c.Value]
	case c.Namespace == NamespaceChoice:
		idx, ok := ctx.Choices[c.Key]
		return ok && strconv.Itoa(idx) == c.Value
	}

	if v, ok := ctx.ActionData[c.Namespace+":"+c.Key]; ok {
		return v == c.Value
	}
	v, ok := ctx.ActionData[c.Key]
	return ok && v == c.Value
}

// Match parses and evaluates raw. Unparseable conditions never match.
func Match(raw string, ctx Context) bool {
	c, err := Parse(raw)
	if err != nil {
		return false
	}
	return c.Matches(ctx)
}

// MatchAll reports whether every condition matches.
// An empty list does not match.
func MatchAll(raws []string, ctx Context) bool {
	if len(raws) == 0 {
		return false
	}
	for _, raw := range raws {
		if !Match(raw, ctx) {
			return false
		}
	}
	return true
}
