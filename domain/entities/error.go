package entities

import "strings"

// ErrorDetail is the structured form of a startup failure, suitable for
// logs and machine consumers.
// Types: "network", "config", "policy", "module", "link", "entry", "bridge", "internal".
type ErrorDetail struct {
	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Source names the module source involved, if any.
	Source string `json:"source,omitempty"`

	// IsTimeout marks a transfer that ran out of time.
	IsTimeout bool `json:"is_timeout,omitempty"`

	// IsNotFound marks a missing module or export.
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// Error renders "type: message [code]". The internal type is omitted.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Type != "" && e.Type != "internal" {
		b.WriteString(e.Type)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	return b.String()
}

// NewErrorDetail creates an ErrorDetail of the given type.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}

// WithCode sets the code and returns the receiver.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}
