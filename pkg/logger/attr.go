package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// A nil error produces an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the owning component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Username records the acting username under the key "username".
func Username(name string) slog.Attr {
	return slog.String("username", name)
}

// TenantName records the tenant a request targets under the key "tenant".
func TenantName(name string) slog.Attr {
	return slog.String("tenant", name)
}
