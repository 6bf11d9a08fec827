// Package errors provides domain-specific error types for the loader.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/wasm-loader/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// FetchError represents a failure to transfer the module binary.
type FetchError struct {
	Err    error
	Source string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Timeout() bool {
	var t interface{ Timeout() bool }
	if stdErrors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// ToErrorDetail implements DetailedError.
func (e *FetchError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "network", Code: "fetch", Source: e.Source}
	if e.Timeout() {
		detail.Type = "timeout"
		detail.IsTimeout = true
	}
	return detail
}

// HTTPError represents a non-success HTTP status for the module request.
type HTTPError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("http GET %s: unexpected status %s", e.URL, e.Status)
	}
	return fmt.Sprintf("http GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// ToErrorDetail implements DetailedError.
func (e *HTTPError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message:    e.Error(),
		Type:       "network",
		Code:       fmt.Sprintf("http_%d", e.StatusCode),
		Source:     e.URL,
		IsNotFound: e.StatusCode == 404,
	}
}

// ContentTypeError is returned when a module is not served as application/wasm.
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	got := e.ContentType
	if got == "" {
		got = "<none>"
	}
	return fmt.Sprintf("module %s served with content type %q, want \"application/wasm\"", e.URL, got)
}

// ToErrorDetail implements DetailedError.
func (e *ContentTypeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "module", Code: "content_type", Source: e.URL}
}

// PreambleError is returned when the first bytes are not a wasm binary preamble.
type PreambleError struct {
	Source string
	Got    []byte
}

func (e *PreambleError) Error() string {
	return fmt.Sprintf("module %s is not a wasm binary (preamble % x)", e.Source, e.Got)
}

// ToErrorDetail implements DetailedError.
func (e *PreambleError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "module", Code: "preamble", Source: e.Source}
}

// SizeError is returned when a module exceeds the configured size cap.
type SizeError struct {
	Source string
	Limit  int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("module %s exceeds maximum size of %d bytes", e.Source, e.Limit)
}

// ToErrorDetail implements DetailedError.
func (e *SizeError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "module", Code: "size_limit", Source: e.Source}
}

// CompileError represents a module that failed decoding or validation.
type CompileError struct {
	Err    error
	Source string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CompileError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "module", Code: "compile", Source: e.Source}
}

// LinkError represents a failure to instantiate a module against its imports.
type LinkError struct {
	Err    error
	Module string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Module, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LinkError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "link", Code: e.Module}
}

// EntryPointError represents a missing or failing entry point export.
// Err is nil when the export does not exist.
type EntryPointError struct {
	Err  error
	Name string
}

func (e *EntryPointError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("entry point %q not exported", e.Name)
	}
	return fmt.Sprintf("entry point %q failed: %v", e.Name, e.Err)
}

func (e *EntryPointError) Unwrap() error {
	return e.Err
}

// Missing reports whether the export was absent.
func (e *EntryPointError) Missing() bool {
	return e.Err == nil
}

// ToErrorDetail implements DetailedError.
func (e *EntryPointError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "entry", Code: e.Name, IsNotFound: e.Missing()}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err    error
	Fields []string
}

func (e *ConfigError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("config validation failed for %s: %v", strings.Join(e.Fields, ", "), e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: strings.Join(e.Fields, ",")}
}

// PolicyError reports a module source rejected by the source policy.
type PolicyError struct {
	Source string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("module source %s not allowed by policy", e.Source)
}

// ToErrorDetail implements DetailedError.
func (e *PolicyError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "policy", Code: "denied", Source: e.Source}
}
