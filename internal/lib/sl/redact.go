package sl

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultBlacklist is the set of lowercased key-name substrings that mark a
// field as secret. Any attribute key containing one of these, anywhere in a
// nested map/array/group, is replaced with Sentinel before emission.
var DefaultBlacklist = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api key",
	"apikey",
	"webhook signature",
	"proxy_credential",
	"credential",
}

// Sentinel replaces the value of any attribute whose key matches the
// blacklist.
const Sentinel = "[REDACTED]"

// RedactingHandler wraps an slog.Handler and scrubs blacklisted fields from
// every record before it reaches the wrapped handler. Redaction descends
// into slog.Group attributes and into map[string]any / []any values carried
// by KindAny attributes, so a caller cannot leak a secret by nesting it one
// level deeper than the top-level attribute list.
type RedactingHandler struct {
	next      slog.Handler
	blacklist []string
}

// NewRedactingHandler wraps next with redaction against blacklist (expected
// already-lowercased substrings). A nil or empty blacklist falls back to
// DefaultBlacklist.
func NewRedactingHandler(next slog.Handler, blacklist []string) *RedactingHandler {
	if len(blacklist) == 0 {
		blacklist = DefaultBlacklist
	}
	return &RedactingHandler{next: next, blacklist: blacklist}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.redactAttr(a))
		return true
	})
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	nr.AddAttrs(attrs...)
	return h.next.Handle(ctx, nr)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted), blacklist: h.blacklist}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name), blacklist: h.blacklist}
}

func (h *RedactingHandler) matches(key string) bool {
	lower := strings.ToLower(key)
	for _, needle := range h.blacklist {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if h.matches(a.Key) {
		return slog.String(a.Key, Sentinel)
	}
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindAny:
		return slog.Any(a.Key, h.redactAny(a.Value.Any()))
	default:
		return a
	}
}

func (h *RedactingHandler) redactAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			if h.matches(k) {
				out[k] = Sentinel
			} else {
				out[k] = h.redactAny(vv)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = h.redactAny(vv)
		}
		return out
	default:
		return v
	}
}
