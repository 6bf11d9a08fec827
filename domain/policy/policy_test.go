package policy_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	kinds   []string
	reasons []string
}

func (h *recordingHandler) OnDenial(kind string, _ interface{}, reason string) {
	h.kinds = append(h.kinds, kind)
	h.reasons = append(h.reasons, reason)
}

func newPolicy(t testing.TB, rules entities.SourcePolicy, opts ...policy.PolicyOption) *policy.Policy {
	t.Helper()
	opts = append([]policy.PolicyOption{policy.WithDenialHandler(&policy.NopDenialHandler{})}, opts...)
	p, err := policy.New(rules, opts...)
	require.NoError(t, err)
	return p
}

func httpLoc(host string, port int) entities.SourceLocation {
	return entities.SourceLocation{Kind: entities.SourceKindHTTP, Host: host, Port: port}
}

func fileLoc(path string) entities.SourceLocation {
	return entities.SourceLocation{Kind: entities.SourceKindFile, Path: path}
}

func TestPolicy_CheckNetwork(t *testing.T) {
	p := newPolicy(t, entities.SourcePolicy{
		Network: []entities.NetworkRule{
			{Hosts: []string{"example.com", "*.internal"}, Ports: []string{"80", "443", "8000-8010"}},
		},
	})

	tests := []struct {
		name string
		loc  entities.SourceLocation
		want bool
	}{
		{"Allowed host and port", httpLoc("example.com", 80), true},
		{"Allowed wildcard host", httpLoc("svc.internal", 443), true},
		{"Allowed range port", httpLoc("example.com", 8005), true},
		{"Host is case insensitive", httpLoc("EXAMPLE.com", 443), true},
		{"Denied port", httpLoc("example.com", 9999), false},
		{"Denied host", httpLoc("google.com", 80), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CheckSource(tt.loc))
		})
	}
}

func TestPolicy_CheckNetwork_AnyPort(t *testing.T) {
	p := newPolicy(t, entities.SourcePolicy{
		Network: []entities.NetworkRule{{Hosts: []string{"127.0.0.1"}}},
	})

	assert.True(t, p.CheckSource(httpLoc("127.0.0.1", 43125)))
	assert.False(t, p.CheckSource(httpLoc("localhost", 43125)))
}

func TestPolicy_CheckNetwork_MultipleRules(t *testing.T) {
	p := newPolicy(t, entities.SourcePolicy{
		Network: []entities.NetworkRule{
			{Hosts: []string{"api.internal"}, Ports: []string{"80"}},
			{Hosts: []string{"*.external.com"}, Ports: []string{"443"}},
		},
	})

	assert.True(t, p.CheckSource(httpLoc("api.internal", 80)))
	assert.True(t, p.CheckSource(httpLoc("www.external.com", 443)))
	// Each rule is independent: hosts and ports do not mix across rules.
	assert.False(t, p.CheckSource(httpLoc("api.internal", 443)))
	assert.False(t, p.CheckSource(httpLoc("www.external.com", 80)))
}

func TestPolicy_CheckFile(t *testing.T) {
	p := newPolicy(t, entities.SourcePolicy{
		Paths: []string{"/srv/modules/**/*.wasm", "/opt/app.wasm"},
	}, policy.WithSymlinkResolution(false))

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"Exact", "/opt/app.wasm", true},
		{"Glob", "/srv/modules/a/b/example.wasm", true},
		{"Glob top level", "/srv/modules/example.wasm", true},
		{"Cleaned path", "/srv/modules/../modules/x.wasm", true},
		{"Wrong extension", "/srv/modules/x.txt", false},
		{"Traversal", "/srv/modules/../../etc/passwd", false},
		{"Outside", "/opt/other.wasm", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CheckSource(fileLoc(tt.path)))
		})
	}
}

func TestPolicy_CheckFile_RelativePath(t *testing.T) {
	rules := entities.SourcePolicy{Paths: []string{"/app/**"}}

	p := newPolicy(t, rules, policy.WithSymlinkResolution(false))
	assert.False(t, p.CheckSource(fileLoc("modules/example.wasm")))

	withCwd := newPolicy(t, rules, policy.WithWorkingDirectory("/app"), policy.WithSymlinkResolution(false))
	assert.True(t, withCwd.CheckSource(fileLoc("modules/example.wasm")))
}

func TestPolicy_CheckFile_RelativePattern(t *testing.T) {
	rules := entities.SourcePolicy{Paths: []string{"modules/*.wasm"}}

	t.Run("working directory", func(t *testing.T) {
		p := newPolicy(t, rules, policy.WithWorkingDirectory("/app"), policy.WithSymlinkResolution(false))
		assert.True(t, p.CheckSource(fileLoc("/app/modules/example.wasm")))
		assert.True(t, p.CheckSource(fileLoc("modules/example.wasm")))
		assert.False(t, p.CheckSource(fileLoc("/other/modules/example.wasm")))
	})

	t.Run("process working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		resolved, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)

		p := newPolicy(t, rules)
		assert.True(t, p.CheckSource(fileLoc(filepath.Join(resolved, "modules", "app.wasm"))))
		assert.False(t, p.CheckSource(fileLoc(filepath.Join(resolved, "app.wasm"))))
	})

	t.Run("glob characters in working directory", func(t *testing.T) {
		p := newPolicy(t, rules, policy.WithWorkingDirectory("/srv/[v1]"), policy.WithSymlinkResolution(false))
		assert.True(t, p.CheckSource(fileLoc("/srv/[v1]/modules/example.wasm")))
		assert.False(t, p.CheckSource(fileLoc("/srv/v/modules/example.wasm")))
	})
}

func TestPolicy_CheckFile_Symlink(t *testing.T) {
	allowed := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "evil.wasm")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))
	link := filepath.Join(allowed, "example.wasm")
	require.NoError(t, os.Symlink(target, link))

	resolvedAllowed, err := filepath.EvalSymlinks(allowed)
	require.NoError(t, err)
	rules := entities.SourcePolicy{Paths: []string{filepath.ToSlash(allowed) + "/**", filepath.ToSlash(resolvedAllowed) + "/**"}}

	p := newPolicy(t, rules)
	assert.False(t, p.CheckSource(fileLoc(link)))

	noResolve := newPolicy(t, rules, policy.WithSymlinkResolution(false))
	assert.True(t, noResolve.CheckSource(fileLoc(link)))
}

func TestPolicy_DenialHandler(t *testing.T) {
	h := &recordingHandler{}
	p, err := policy.New(entities.SourcePolicy{
		Network: []entities.NetworkRule{{Hosts: []string{"example.com"}}},
	}, policy.WithDenialHandler(h))
	require.NoError(t, err)

	assert.False(t, p.CheckSource(httpLoc("evil.com", 80)))
	assert.False(t, p.CheckSource(fileLoc("/tmp/x.wasm")))
	assert.False(t, p.CheckSource(entities.SourceLocation{Kind: "ftp"}))
	assert.True(t, p.CheckSource(httpLoc("example.com", 80)))

	assert.Equal(t, []string{"network", "fs", "source"}, h.kinds)
	assert.Equal(t, "host/port not allowed", h.reasons[0])
}

func TestLogDenialHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &policy.LogDenialHandler{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	decode := func() map[string]any {
		t.Helper()
		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), buf.String())
		buf.Reset()
		return rec
	}

	h.OnDenial("network", httpLoc("evil.com", 8080), "host/port not allowed")
	rec := decode()
	assert.Equal(t, "network", rec["denial"])
	assert.Equal(t, "http", rec["source_kind"])
	assert.Equal(t, "evil.com", rec["host"])
	assert.Equal(t, float64(8080), rec["port"])
	assert.Equal(t, "host/port not allowed", rec["reason"])
	assert.NotContains(t, rec, "request")

	h.OnDenial("fs", fileLoc("/tmp/x.wasm"), "path not allowed")
	rec = decode()
	assert.Equal(t, "file", rec["source_kind"])
	assert.Equal(t, "/tmp/x.wasm", rec["path"])
	assert.NotContains(t, rec, "host")
	assert.NotContains(t, rec, "port")
}

func TestSourceLocation_String(t *testing.T) {
	assert.Equal(t, "http cdn.example.com:443/app.wasm", entities.SourceLocation{
		Kind: entities.SourceKindHTTP, Host: "cdn.example.com", Port: 443, Path: "/app.wasm",
	}.String())
	assert.Equal(t, "file /srv/app.wasm", fileLoc("/srv/app.wasm").String())
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rules entities.SourcePolicy
	}{
		{"bad host glob", entities.SourcePolicy{Network: []entities.NetworkRule{{Hosts: []string{"[a-"}}}}},
		{"bad port", entities.SourcePolicy{Network: []entities.NetworkRule{{Hosts: []string{"a"}, Ports: []string{"http"}}}}},
		{"bad range", entities.SourcePolicy{Network: []entities.NetworkRule{{Hosts: []string{"a"}, Ports: []string{"90-80"}}}}},
		{"port out of bounds", entities.SourcePolicy{Network: []entities.NetworkRule{{Hosts: []string{"a"}, Ports: []string{"70000"}}}}},
		{"bad path glob", entities.SourcePolicy{Paths: []string{"/srv/[x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policy.New(tt.rules)
			assert.Error(t, err)
		})
	}
}

func TestSourcePolicy_Enabled(t *testing.T) {
	assert.False(t, entities.SourcePolicy{}.Enabled())
	assert.True(t, entities.SourcePolicy{Paths: []string{"/x"}}.Enabled())
}
