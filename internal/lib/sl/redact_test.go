package sl_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostplane/controlplane/internal/lib/sl"
)

func newRedactedLogger(buf *bytes.Buffer) *slog.Logger {
	base := slog.NewJSONHandler(buf, nil)
	return slog.New(sl.NewRedactingHandler(base, nil))
}

func TestRedactingHandler_TopLevelKey(t *testing.T) {
	var buf bytes.Buffer
	log := newRedactedLogger(&buf)

	log.Info("login attempt", slog.String("password", "hunter2"), slog.String("email", "a@x.test"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, sl.Sentinel, out["password"])
	assert.Equal(t, "a@x.test", out["email"])
}

func TestRedactingHandler_NestedGroup(t *testing.T) {
	var buf bytes.Buffer
	log := newRedactedLogger(&buf)

	log.Info("webhook received",
		slog.Group("headers",
			slog.String("X-Webhook-Signature", "deadbeef"),
			slog.String("Content-Type", "application/json"),
		),
	)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	headers, ok := out["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", headers["Content-Type"])
	// "Signature" alone isn't blacklisted, but the key contains no match
	// here either; this asserts redaction doesn't over-match unrelated keys.
	assert.NotEqual(t, sl.Sentinel, headers["X-Webhook-Signature"])
}

func TestRedactingHandler_NestedMap(t *testing.T) {
	var buf bytes.Buffer
	log := newRedactedLogger(&buf)

	log.Info("workspace created", slog.Any("workspace", map[string]any{
		"id":               "ws-1",
		"proxy_credential": "abc123",
		"limits": map[string]any{
			"cpu_quota":    1.0,
			"access_token": "zzz",
		},
	}))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	ws, ok := out["workspace"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, sl.Sentinel, ws["proxy_credential"])
	assert.Equal(t, "ws-1", ws["id"])
	limits, ok := ws["limits"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, sl.Sentinel, limits["access_token"])
	assert.Equal(t, 1.0, limits["cpu_quota"])
}

func TestRedactingHandler_NestedSlice(t *testing.T) {
	var buf bytes.Buffer
	log := newRedactedLogger(&buf)

	log.Info("batch", slog.Any("events", []any{
		map[string]any{"secret": "s1"},
		map[string]any{"secret": "s2"},
	}))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	events, ok := out["events"].([]any)
	require.True(t, ok)
	for _, e := range events {
		m := e.(map[string]any)
		assert.Equal(t, sl.Sentinel, m["secret"])
	}
}

func TestRedactingHandler_WithAttrsRedacts(t *testing.T) {
	var buf bytes.Buffer
	log := newRedactedLogger(&buf).With(slog.String("token", "tok-1"))

	log.Info("request")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, sl.Sentinel, out["token"])
}
