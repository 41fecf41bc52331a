// Package prompt renders the templates reasoning processors send to
// the language model. Templates use ${var} placeholders; a template
// that references a variable the caller did not supply is a
// programming error, so rendering fails loudly instead of silently
// shipping a broken prompt to the model.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// bracePattern matches ${varname} - varname can contain alphanumeric
// and underscore.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is a prompt template with ${var} placeholders.
// Safe for concurrent use.
type Template struct {
	text string
}

// New creates a template from its text.
func New(text string) Template {
	return Template{text: text}
}

// Render expands the template with vars. Every placeholder must be
// covered; missing variables produce an UndefinedVariableError naming
// all of them.
func (t Template) Render(vars map[string]any) (string, error) {
	if t.text == "" {
		return "", nil
	}

	var missing []string
	result := bracePattern.ReplaceAllStringFunc(t.text, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// MustRender expands the template and panics on missing variables.
// Use for templates whose variable set is fixed at the call site.
func (t Template) MustRender(vars map[string]any) string {
	result, err := t.Render(vars)
	if err != nil {
		panic(fmt.Sprintf("prompt: %v", err))
	}
	return result
}

// UndefinedVariableError reports placeholders with no matching variable.
type UndefinedVariableError struct {
	// Names are the unmatched variable names, in template order.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}
