package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// Render executes a template's user prompt against the given variables.
func Render(pt *Template, vars map[string]interface{}) (string, error) {
	tmpl, err := template.New(pt.ID).Parse(pt.UserTmpl)
	if err != nil {
		return "", fmt.Errorf("parse prompt %s: %w", pt.ID, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", pt.ID, err)
	}
	return buf.String(), nil
}
