package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/ports"
)

// policyConfig holds configuration for the Policy engine.
type policyConfig struct {
	cwd             string              // Working directory for relative path resolution
	resolveSymlinks bool                // Whether to resolve symlinks
	denialHandler   ports.DenialHandler // Handler invoked on policy denials
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		resolveSymlinks: true,
		denialHandler:   &StderrDenialHandler{},
	}
}

// PolicyOption configures the Policy.
type PolicyOption func(*policyConfig)

// WithWorkingDirectory sets the working directory for relative path resolution.
func WithWorkingDirectory(cwd string) PolicyOption {
	return func(c *policyConfig) {
		c.cwd = cwd
	}
}

// WithSymlinkResolution enables/disables symlink resolution.
// Default is true. Disable only for testing.
func WithSymlinkResolution(enabled bool) PolicyOption {
	return func(c *policyConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) PolicyOption {
	return func(c *policyConfig) {
		if h != nil {
			c.denialHandler = h
		}
	}
}

// Policy decides which locations module binaries may be fetched from.
// Rules are compiled once by New and never change.
type Policy struct {
	config       policyConfig
	networkRules []compiledNetworkRule
	paths        []string
}

var _ ports.SourcePolicy = (*Policy)(nil)

type compiledNetworkRule struct {
	hosts []string
	ports []portRange
}

type portRange struct {
	min, max int
}

// New compiles rules into a Policy. Invalid glob patterns and port
// ranges are rejected. Relative path patterns are anchored to the working
// directory, or to the process working directory when none is set.
func New(rules entities.SourcePolicy, opts ...PolicyOption) (*Policy, error) {
	cfg := defaultPolicyConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &Policy{config: cfg}

	for i, rule := range rules.Network {
		cr := compiledNetworkRule{}
		for _, h := range rule.Hosts {
			h = strings.ToLower(h)
			if !doublestar.ValidatePattern(h) {
				return nil, fmt.Errorf("network rule %d: invalid host pattern %q", i, h)
			}
			cr.hosts = append(cr.hosts, h)
		}
		if len(rule.Ports) == 0 {
			cr.ports = []portRange{{0, 65535}}
		}
		for _, portStr := range rule.Ports {
			pr, err := parsePortRange(portStr)
			if err != nil {
				return nil, fmt.Errorf("network rule %d: %w", i, err)
			}
			cr.ports = append(cr.ports, pr)
		}
		p.networkRules = append(p.networkRules, cr)
	}

	var base string
	for _, path := range rules.Paths {
		if !doublestar.ValidatePattern(filepath.ToSlash(path)) {
			return nil, fmt.Errorf("invalid path pattern %q", path)
		}
		if !filepath.IsAbs(path) {
			if base == "" {
				var err error
				if base, err = patternBase(cfg); err != nil {
					return nil, err
				}
			}
			path = base + "/" + filepath.ToSlash(path)
		}
		p.paths = append(p.paths, filepath.ToSlash(path))
	}
	return p, nil
}

// patternBase returns the directory relative path patterns are joined to,
// as an escaped glob prefix. Sources are matched after symlink resolution,
// so the base is resolved the same way.
func patternBase(cfg policyConfig) (string, error) {
	dir := cfg.cwd
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory for path patterns: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve working directory for path patterns: %w", err)
	}
	if cfg.resolveSymlinks {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
	}
	return escapeGlob(strings.TrimSuffix(filepath.ToSlash(dir), "/")), nil
}

var globMeta = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`)

func escapeGlob(s string) string {
	return globMeta.Replace(s)
}

func parsePortRange(s string) (portRange, error) {
	s = strings.TrimSpace(s)
	if s == "*" {
		return portRange{0, 65535}, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	minPort, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return portRange{}, fmt.Errorf("invalid port %q", s)
	}
	maxPort := minPort
	if isRange {
		if maxPort, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return portRange{}, fmt.Errorf("invalid port range %q", s)
		}
	}
	if minPort < 0 || maxPort > 65535 || minPort > maxPort {
		return portRange{}, fmt.Errorf("port range %q out of bounds", s)
	}
	return portRange{minPort, maxPort}, nil
}

// CheckSource reports whether a module may be fetched from loc.
// Denials are reported to the denial handler.
func (p *Policy) CheckSource(loc entities.SourceLocation) bool {
	switch loc.Kind {
	case entities.SourceKindHTTP:
		return p.checkNetwork(loc)
	case entities.SourceKindFile:
		return p.checkFile(loc)
	default:
		p.config.denialHandler.OnDenial("source", loc, "unknown source kind")
		return false
	}
}

func (p *Policy) checkNetwork(loc entities.SourceLocation) bool {
	host := strings.ToLower(loc.Host)

	// A request must match at least one rule's hosts AND ports.
	for _, rule := range p.networkRules {
		hostMatch := false
		for _, pattern := range rule.hosts {
			if matched, _ := doublestar.Match(pattern, host); matched {
				hostMatch = true
				break
			}
		}

		portMatch := false
		for _, pr := range rule.ports {
			if loc.Port >= pr.min && loc.Port <= pr.max {
				portMatch = true
				break
			}
		}

		if hostMatch && portMatch {
			return true
		}
	}

	p.config.denialHandler.OnDenial("network", loc, "host/port not allowed")
	return false
}

func (p *Policy) checkFile(loc entities.SourceLocation) bool {
	path := filepath.Clean(loc.Path)
	if !filepath.IsAbs(path) {
		if p.config.cwd == "" {
			p.config.denialHandler.OnDenial("fs", loc, "relative path without working directory")
			return false
		}
		path = filepath.Join(p.config.cwd, path)
	}

	// Resolve symlinks so a link cannot point outside the allowed tree.
	if p.config.resolveSymlinks {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
	}

	path = filepath.ToSlash(path)
	for _, pattern := range p.paths {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}

	p.config.denialHandler.OnDenial("fs", loc, "path not allowed")
	return false
}
