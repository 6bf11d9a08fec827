package template_test

import (
	"testing"

	"github.com/reglet-dev/wasm-loader/application/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoTemplateEngine_Render(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithEnviron([]string{"ORIGIN=http://localhost:8080", "EMPTY="}))

	t.Run("Successful Resolution", func(t *testing.T) {
		raw := []byte(`module: "{{.vars.module}}"` + "\n" + `base_url: "{{.env.ORIGIN}}/"`)

		out, err := engine.Render(raw, map[string]interface{}{"module": "app.wasm"})
		require.NoError(t, err)
		assert.Equal(t, "module: \"app.wasm\"\nbase_url: \"http://localhost:8080/\"", string(out))
	})

	t.Run("Plain YAML Passes Through", func(t *testing.T) {
		raw := []byte("module: app.wasm\n")
		out, err := engine.Render(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, raw, out)
	})

	t.Run("Missing Key Fails", func(t *testing.T) {
		_, err := engine.Render([]byte(`module: "{{.vars.missing}}"`), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map has no entry for key")

		_, err = engine.Render([]byte(`module: "{{.env.UNSET}}"`), nil)
		assert.Error(t, err)
	})

	t.Run("Lenient Mode", func(t *testing.T) {
		lenient := template.NewGoTemplateEngine(template.WithStrict(false), template.WithEnviron([]string{}))
		out, err := lenient.Render([]byte(`a: "{{.vars.missing}}"`), nil)
		require.NoError(t, err)
		assert.Equal(t, `a: "<no value>"`, string(out))
	})

	t.Run("Invalid Template Syntax", func(t *testing.T) {
		_, err := engine.Render([]byte(`module: "{{.vars.module"`), nil)
		require.Error(t, err)
	})
}
