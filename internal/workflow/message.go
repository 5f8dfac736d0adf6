package workflow

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// MessageData is the data available to commit message templates.
type MessageData struct {
	Branch    string // checked-out branch, empty when unknown
	Date      string // YYYY-MM-DD
	Workspace string
}

// RenderMessage executes tmpl against data. Unknown fields are an error,
// as is a message that renders to whitespace.
func RenderMessage(tmpl string, data MessageData) (string, error) {
	t, err := template.New("message").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing commit message: %w", err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering commit message: %w", err)
	}
	msg := b.String()
	if strings.TrimSpace(msg) == "" {
		return "", errors.New("commit message is empty")
	}
	return msg, nil
}
