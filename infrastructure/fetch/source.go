package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/reglet-dev/wasm-loader/domain/ports"
)

// ParseSource picks a source for raw. Absolute http(s) URLs and file URLs
// are used as given. Other values are paths: resolved against base when base
// is set, read from the filesystem otherwise.
func ParseSource(raw, base string, opts ...HTTPOption) (ports.ModuleSource, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty module location")
	}

	u, err := url.Parse(raw)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return NewHTTPSource(u.String(), opts...), nil
		case "file":
			return NewFileSource(u.Path), nil
		}
	}

	if base == "" {
		return NewFileSource(raw), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", base, err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", base)
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid module path %q: %w", raw, err)
	}
	return NewHTTPSource(baseURL.ResolveReference(ref).String(), opts...), nil
}
