// Package prompt provides a centralized prompt library for LLM
// interactions. Templates are registered at init time and rendered with
// Go text/template, so call sites never embed raw prompt strings.
package prompt

// Template represents a reusable prompt with metadata
type Template struct {
	ID           string // Unique identifier (e.g., "rag.grounded_answer")
	Name         string // Human-readable name
	Category     string // Category (rag, metrics, search, report)
	Description  string // Description of prompt purpose
	SystemPrompt string // The system prompt content
	UserTmpl     string // Go template for the user prompt
	Version      string // Version for tracking changes
}
