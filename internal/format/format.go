// Package format renders notification templates against a routing context.
//
// Templates use named placeholders with optional bracketed field access,
// e.g. "{project[name]}", "{issue[subject]}", "{url}". The template for a
// given event is looked up per channel under the "format.<kind>-<action>d"
// setting, falling back to the stock template.
package format

import (
	"context"
	"fmt"
	"regexp"

	"github.com/taiga-contrib/relay/internal/event"
	"github.com/taiga-contrib/relay/internal/settings"
)

// placeholderPattern matches "{name}" and "{name[field]}".
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?:\[([A-Za-z0-9_-]+)\])?\}`)

// MissingPlaceholderError reports a template referencing a field the routing
// context doesn't carry. This is a per-channel configuration error, not a
// payload error.
type MissingPlaceholderError struct {
	Placeholder string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("template references unknown field %s", e.Placeholder)
}

// Formatter resolves per-channel templates and renders messages.
type Formatter struct {
	settings *settings.Store
}

func New(st *settings.Store) *Formatter {
	return &Formatter{settings: st}
}

// Format renders the message for (channel, key) against renderCtx. key is
// the template lookup key, e.g. "issue-created".
func (f *Formatter) Format(ctx context.Context, channel, key string, renderCtx map[string]any) (string, error) {
	fallback, known := DefaultTemplate(key)
	tpl, err := f.settings.String(ctx, channel, "format."+key, fallback)
	if err != nil {
		return "", fmt.Errorf("load template %q for %s: %w", key, channel, err)
	}
	if tpl == "" {
		if !known {
			return "", fmt.Errorf("no template for key %q", key)
		}
		tpl = fallback
	}
	return Render(tpl, renderCtx)
}

// Render substitutes every placeholder in tpl from renderCtx. The first
// missing field aborts with MissingPlaceholderError.
func Render(tpl string, renderCtx map[string]any) (string, error) {
	var missing *MissingPlaceholderError

	out := placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		if missing != nil {
			return match
		}
		groups := placeholderPattern.FindStringSubmatch(match)
		name, field := groups[1], groups[2]

		value, ok := renderCtx[name]
		if !ok {
			missing = &MissingPlaceholderError{Placeholder: match}
			return match
		}
		if field == "" {
			return event.Stringify(value)
		}

		nested, ok := value.(map[string]any)
		if !ok {
			missing = &MissingPlaceholderError{Placeholder: match}
			return match
		}
		inner, ok := nested[field]
		if !ok {
			missing = &MissingPlaceholderError{Placeholder: match}
			return match
		}
		return event.Stringify(inner)
	})

	if missing != nil {
		return "", missing
	}
	return out, nil
}
