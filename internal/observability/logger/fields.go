package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

// RequestID is the per-request correlation id.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method is the HTTP method.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path is the request path.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status is the HTTP status code written.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration is the request latency.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// ClientIP is the remote address of the caller.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// ---- OAuth ----

// ClientID is the public OAuth client identifier.
func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// UserID is the resolved local user.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Grant is the grant identifier handling the request.
func Grant(v string) zap.Field {
	return zap.String("grant", v)
}

// Provider is the external identity provider name.
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// SessionID identifies a persisted session. Token ids are never logged.
func SessionID(v string) zap.Field {
	return zap.String("session_id", v)
}

// Scopes lists granted or requested scope names.
func Scopes(v []string) zap.Field {
	return zap.Strings("scopes", v)
}

// ---- System ----

// Component names the subsystem emitting the entry.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op names the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer is handler, grant, store...
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err attaches an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// String is a generic string field.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int is a generic int field.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool is a generic bool field.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

// Any is a generic field for any value.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// Email logs an address with the local part and first domain label masked:
// "jane@example.com" becomes "j…@e….com".
func Email(v string) zap.Field {
	return zap.String("email", maskEmail(v))
}

func maskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	user, domain, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		if len(s) <= 3 {
			return strings.Repeat("*", len(s))
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	labels := strings.Split(domain, ".")
	if len(labels[0]) > 1 {
		labels[0] = labels[0][:1] + "…"
	}
	return user + "@" + strings.Join(labels, ".")
}
