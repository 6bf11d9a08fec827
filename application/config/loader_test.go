package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/wasm-loader/application/config"
	apptemplate "github.com/reglet-dev/wasm-loader/application/template"
	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
	"github.com/stretchr/testify/suite"
)

// LoaderSuite tests the config pipeline end to end.
type LoaderSuite struct {
	suite.Suite
	loader *config.Loader
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	l, err := config.NewLoader(config.WithTemplateEngine(
		apptemplate.NewGoTemplateEngine(apptemplate.WithEnviron([]string{"ORIGIN=http://localhost:8080"})),
	))
	s.Require().NoError(err)
	s.loader = l
}

func (s *LoaderSuite) TestValidConfig() {
	yaml := `
module: "{{.vars.module}}"
base_url: "{{.env.ORIGIN}}/app/"
env:
  initial_pages: 2
  max_pages: 8
bridge:
  console: false
`
	cfg, err := s.loader.Load([]byte(yaml), map[string]interface{}{"module": "game.wasm"})
	s.Require().NoError(err)
	s.Equal("game.wasm", cfg.Module)
	s.Equal("http://localhost:8080/app/", cfg.BaseURL)
	s.Equal(uint32(2), cfg.Env.InitialPages)
	s.Equal(uint32(8), cfg.Env.MaxPages)
	s.False(cfg.Bridge.Console)
	s.Equal("zjb", cfg.Bridge.Namespace)
}

func (s *LoaderSuite) TestMissingVariable() {
	_, err := s.loader.Load([]byte(`module: "{{.vars.module}}"`), nil)
	s.ErrorContains(err, "failed to render config")
}

func (s *LoaderSuite) TestSchemaViolation() {
	_, err := s.loader.Load([]byte("env:\n  initial_pages: many\n"), nil)

	var cfgErr *domainerrors.ConfigError
	s.Require().ErrorAs(err, &cfgErr)
	s.Equal([]string{"env.initial_pages"}, cfgErr.Fields)
}

func (s *LoaderSuite) TestStructViolation() {
	// Passes the schema, fails the cross-field rule.
	_, err := s.loader.Load([]byte("env:\n  initial_pages: 4\n  max_pages: 2\n"), nil)

	var cfgErr *domainerrors.ConfigError
	s.Require().ErrorAs(err, &cfgErr)
	s.Equal([]string{"env.max_pages"}, cfgErr.Fields)
}

func (s *LoaderSuite) TestWithoutSchema() {
	l, err := config.NewLoader(config.WithoutSchema())
	s.Require().NoError(err)

	// The parser still rejects unknown keys.
	_, err = l.Load([]byte("modle: x.wasm\n"), nil)
	s.ErrorContains(err, "modle")
}

func (s *LoaderSuite) TestLoadFile() {
	path := filepath.Join(s.T().TempDir(), "loader.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("entry_point: start\n"), 0o600))

	cfg, err := s.loader.LoadFile(path, nil)
	s.Require().NoError(err)
	s.Equal("start", cfg.EntryPoint)

	_, err = s.loader.LoadFile(filepath.Join(s.T().TempDir(), "missing.yaml"), nil)
	s.ErrorContains(err, "failed to read config")
}
