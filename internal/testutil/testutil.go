// Package testutil provides common test utilities and assertions for loader tests
package testutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ServeModule starts a server answering every request with bin served as
// application/wasm. The server is closed when the test ends.
func ServeModule(t *testing.T, bin []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/wasm")
		_, _ = w.Write(bin)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// JSONLogger returns a logger writing JSON records at level and above into
// the returned buffer.
func JSONLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

// LogRecords decodes one JSON log record per line.
func LogRecords(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), "log line is not JSON: %s", sc.Text())
		records = append(records, rec)
	}
	return records
}

// FindLog returns the first record with message msg, or nil.
func FindLog(records []map[string]interface{}, msg string) map[string]interface{} {
	for _, rec := range records {
		if rec[slog.MessageKey] == msg {
			return rec
		}
	}
	return nil
}

// AssertErrorDetail asserts the structured detail of err.
func AssertErrorDetail(t *testing.T, err error, wantType, wantCode string) {
	t.Helper()
	detail := domainerrors.ToErrorDetail(err)
	require.NotNil(t, detail, "expected an error")
	assert.Equal(t, wantType, detail.Type, "detail type of %v", err)
	assert.Equal(t, wantCode, detail.Code, "detail code of %v", err)
}

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// AssertMapContains asserts that a map contains all expected key-value pairs
func AssertMapContains(t *testing.T, expectedMap, actualMap map[string]interface{}, msgAndArgs ...interface{}) {
	t.Helper()

	for key, expectedValue := range expectedMap {
		actualValue, ok := actualMap[key]
		assert.True(t, ok, "map should contain key %q", key)
		assert.Equal(t, expectedValue, actualValue, msgAndArgs...)
	}
}
