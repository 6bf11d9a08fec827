package entities

import (
	"net"
	"strconv"
)

// SourcePolicy restricts where module binaries may be fetched from.
// An empty policy allows every source.
type SourcePolicy struct {
	// Network lists the HTTP origins allowed for remote modules.
	Network []NetworkRule `yaml:"network,omitempty" json:"network,omitempty" validate:"dive"`

	// Paths lists glob patterns of module files allowed on the local filesystem.
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty" jsonschema:"description=Glob patterns such as /srv/modules/**/*.wasm"`
}

// Enabled reports whether the policy restricts anything.
func (p SourcePolicy) Enabled() bool {
	return len(p.Network) > 0 || len(p.Paths) > 0
}

// NetworkRule allows a set of hosts on a set of ports.
type NetworkRule struct {
	// Hosts are glob patterns matched against the URL host, e.g. "*.example.com".
	Hosts []string `yaml:"hosts" json:"hosts" validate:"required,min=1"`

	// Ports are single ports ("443"), ranges ("8000-8010") or "*".
	// Empty allows any port.
	Ports []string `yaml:"ports,omitempty" json:"ports,omitempty"`
}

// Source kinds reported by SourceLocation.
const (
	SourceKindHTTP = "http"
	SourceKindFile = "file"
)

// SourceLocation describes where a module source reads from.
type SourceLocation struct {
	Kind string
	Host string
	Port int
	Path string
}

// String renders the location as "http host:port/path" or "file /path".
func (l SourceLocation) String() string {
	if l.Kind == SourceKindHTTP {
		return l.Kind + " " + net.JoinHostPort(l.Host, strconv.Itoa(l.Port)) + l.Path
	}
	return l.Kind + " " + l.Path
}
