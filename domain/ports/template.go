package ports

// TemplateEngine renders a configuration template.
type TemplateEngine interface {
	// Render executes raw with vars and returns the rendered bytes.
	Render(raw []byte, vars map[string]interface{}) ([]byte, error)
}
