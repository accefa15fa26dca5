// Package sl contains small helpers around log/slog: a constructor for the
// "error" attribute, and a redacting handler that every process wires in
// front of its real handler so that secrets never reach a log sink
// regardless of what a caller passes in.
package sl

import "log/slog"

// Err returns an slog.Attr with key "error" holding err's message. Keeps
// logging call sites uniform:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
