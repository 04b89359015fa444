package script

import (
	"fmt"
	"strings"
	"text/template"
)

// Render expands tmpl with vars using text/template syntax
// ("Hello {{.member_name}}"). Missing keys render as empty text.
func Render(tmpl string, vars map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	t, err := template.New("text").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var b strings.Builder
	if err := t.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return strings.ReplaceAll(b.String(), "<no value>", ""), nil
}
