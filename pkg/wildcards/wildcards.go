// Package wildcards substitutes {name} placeholders through nested
// key-value structures, with lexically scoped bindings.
//
// Substitution is forgiving: a string whose placeholders cannot all be
// resolved is left unchanged rather than failing the whole walk.
// Callers who want visibility can attach a zap sink to see skipped
// values at debug level.
package wildcards

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	placeholder = regexp.MustCompile(`\{(\w+)\}`)
	braceKey    = regexp.MustCompile(`^\{(\w+)\}$`)
)

// Apply walks node, substituting placeholders in string values from
// scope. A map key written "{name}" registers its (substituted) string
// value as a binding visible to that map's descendants only: each map
// works on a copy of the scope, so sibling subtrees never see each
// other's bindings. The input is not mutated; a transformed copy is
// returned.
func Apply(node any, scope map[string]string) any {
	return apply(node, scope, zap.NewNop())
}

// ApplyLogged is Apply with a diagnostic sink for skipped substitutions.
func ApplyLogged(node any, scope map[string]string, logger *zap.Logger) any {
	if logger == nil {
		logger = zap.NewNop()
	}
	return apply(node, scope, logger)
}

func apply(node any, scope map[string]string, logger *zap.Logger) any {
	switch v := node.(type) {
	case map[string]any:
		return applyMap(v, scope, logger)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = apply(elem, scope, logger)
		}
		return out
	case string:
		return substituteOrKeep(v, scope, logger)
	default:
		return node
	}
}

func applyMap(m map[string]any, scope map[string]string, logger *zap.Logger) map[string]any {
	child := make(map[string]string, len(scope))
	for k, v := range scope {
		child[k] = v
	}

	// Register {name} keys first so their bindings are visible to every
	// value in this subtree, regardless of map iteration order.
	for key, val := range m {
		match := braceKey.FindStringSubmatch(key)
		if match == nil {
			continue
		}
		if s, ok := val.(string); ok {
			child[match[1]] = substituteOrKeep(s, scope, logger)
		}
	}

	out := make(map[string]any, len(m))
	for key, val := range m {
		out[key] = apply(val, child, logger)
	}
	return out
}

func substituteOrKeep(s string, scope map[string]string, logger *zap.Logger) string {
	sub, err := Substitute(s, scope)
	if err != nil {
		logger.Debug("wildcard substitution skipped",
			zap.String("value", s),
			zap.Error(err))
		return s
	}
	return sub
}

// Substitute expands every {name} placeholder in s from scope. It is
// atomic: if any placeholder is unresolved the original string is not
// partially rewritten and an error is returned.
func Substitute(s string, scope map[string]string) (string, error) {
	var missing []string
	for _, match := range placeholder.FindAllStringSubmatch(s, -1) {
		if _, ok := scope[match[1]]; !ok {
			missing = append(missing, match[1])
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("unresolved wildcards: %s", strings.Join(missing, ", "))
	}
	return placeholder.ReplaceAllStringFunc(s, func(ph string) string {
		return scope[ph[1:len(ph)-1]]
	}), nil
}
