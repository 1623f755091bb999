package grant

import (
	"strings"
	"unicode"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/validation"
)

// SplitScopes splits a space- or comma-delimited scope string, preserving
// order and dropping duplicates and empty fragments.
func SplitScopes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ValidateScopes parses raw against the scopes client may request.
// An empty raw string yields an empty, valid set. The first malformed scope
// or scope outside the client's set fails with InvalidScope(name).
func ValidateScopes(raw string, client *repository.Client) ([]string, error) {
	requested := SplitScopes(raw)
	for _, s := range requested {
		if !validation.ValidScopeName(s) || client == nil || !client.AllowsScope(s) {
			return nil, InvalidScope(s)
		}
	}
	return requested, nil
}

// validateScopes applies the grant's default/required scope policy before
// ValidateScopes.
func (c Config) validateScopes(raw string, client *repository.Client) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		if c.DefaultScope != "" {
			raw = c.DefaultScope
		} else if c.RequireScope {
			return nil, InvalidRequest("scope")
		}
	}
	return ValidateScopes(raw, client)
}
