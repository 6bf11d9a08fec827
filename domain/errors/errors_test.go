package errors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestFetchError(t *testing.T) {
	baseErr := fmt.Errorf("connection refused")
	err := &FetchError{Source: "http://localhost/example.wasm", Err: baseErr}

	assert.Equal(t, "fetch http://localhost/example.wasm failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, baseErr))
	assert.False(t, err.Timeout())

	detail := err.ToErrorDetail()
	assert.Equal(t, "network", detail.Type)
	assert.Equal(t, "http://localhost/example.wasm", detail.Source)
}

func TestFetchError_Timeout(t *testing.T) {
	err := &FetchError{
		Source: "http://slow/example.wasm",
		Err:    &url.Error{Op: "Get", URL: "http://slow/example.wasm", Err: timeoutErr{}},
	}

	assert.True(t, err.Timeout())
	detail := err.ToErrorDetail()
	assert.Equal(t, "timeout", detail.Type)
	assert.True(t, detail.IsTimeout)
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{URL: "http://localhost/missing.wasm", StatusCode: 404, Status: "404 Not Found"}
	assert.Equal(t, "http GET http://localhost/missing.wasm: unexpected status 404 Not Found", err.Error())

	detail := err.ToErrorDetail()
	assert.Equal(t, "http_404", detail.Code)
	assert.True(t, detail.IsNotFound)

	noStatus := &HTTPError{URL: "u", StatusCode: 500}
	assert.Equal(t, "http GET u: unexpected status 500", noStatus.Error())
	assert.False(t, noStatus.ToErrorDetail().IsNotFound)
}

func TestContentTypeError(t *testing.T) {
	err := &ContentTypeError{URL: "u", ContentType: "text/html"}
	assert.Contains(t, err.Error(), `"text/html"`)

	empty := &ContentTypeError{URL: "u"}
	assert.Contains(t, empty.Error(), "<none>")
	assert.Equal(t, "content_type", empty.ToErrorDetail().Code)
}

func TestPreambleError(t *testing.T) {
	err := &PreambleError{Source: "a.wasm", Got: []byte("<htm")}
	assert.Equal(t, "module a.wasm is not a wasm binary (preamble 3c 68 74 6d)", err.Error())
	assert.Equal(t, "preamble", err.ToErrorDetail().Code)
}

func TestCompileAndLinkErrors(t *testing.T) {
	base := errors.New("invalid magic number")

	compileErr := &CompileError{Source: "a.wasm", Err: base}
	assert.ErrorIs(t, compileErr, base)
	assert.Equal(t, "compile a.wasm: invalid magic number", compileErr.Error())

	linkErr := &LinkError{Module: "app", Err: base}
	assert.ErrorIs(t, linkErr, base)
	assert.Equal(t, "link", linkErr.ToErrorDetail().Type)
}

func TestEntryPointError(t *testing.T) {
	missing := &EntryPointError{Name: "main"}
	assert.True(t, missing.Missing())
	assert.Equal(t, `entry point "main" not exported`, missing.Error())
	assert.True(t, missing.ToErrorDetail().IsNotFound)

	failed := &EntryPointError{Name: "main", Err: context.Canceled}
	assert.False(t, failed.Missing())
	assert.ErrorIs(t, failed, context.Canceled)
}

func TestConfigError(t *testing.T) {
	base := errors.New("bad")
	err := &ConfigError{Fields: []string{"Module", "Env.MaxPages"}, Err: base}
	assert.Equal(t, "config validation failed for Module, Env.MaxPages: bad", err.Error())
	assert.Equal(t, "Module,Env.MaxPages", err.ToErrorDetail().Code)

	assert.Equal(t, "config validation failed: bad", (&ConfigError{Err: base}).Error())
}

func TestPolicyError(t *testing.T) {
	err := &PolicyError{Source: "http://evil.com/a.wasm"}
	assert.Equal(t, "module source http://evil.com/a.wasm not allowed by policy", err.Error())

	detail := err.ToErrorDetail()
	assert.Equal(t, "policy", detail.Type)
	assert.Equal(t, "denied", detail.Code)
	assert.Equal(t, "http://evil.com/a.wasm", detail.Source)
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	t.Run("wrapped detailed error", func(t *testing.T) {
		err := fmt.Errorf("startup: %w", &SizeError{Source: "a.wasm", Limit: 10})
		detail := ToErrorDetail(err)
		require.NotNil(t, detail)
		assert.Equal(t, "size_limit", detail.Code)
	})

	t.Run("entity passthrough", func(t *testing.T) {
		entity := entities.NewErrorDetail("bridge", "boom").WithCode("throw")
		assert.Same(t, entity, ToErrorDetail(fmt.Errorf("x: %w", entity)))
	})

	t.Run("generic", func(t *testing.T) {
		detail := ToErrorDetail(errors.New("plain"))
		assert.Equal(t, "internal", detail.Type)
		assert.Equal(t, "plain", detail.Message)
	})
}
