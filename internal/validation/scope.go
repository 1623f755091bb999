// Package validation holds the syntax rules for names a client registers
// and later requests in the scope parameter.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// A scope name is 1..64 characters of [a-z0-9:_.-], starting and ending
// with [a-z0-9]. Uppercase, whitespace, commas and quotes never match, so a
// registered scope always survives the space/comma split of the token
// request.
//
//	valid:   openid, profile, email, user_friends, graph:me.read, a
//	invalid: Email, "public profile", :profile, profile., "", 65+ chars
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_.-]{0,62}[a-z0-9])?$`)

// MaxScopeName is the longest scope name accepted.
const MaxScopeName = 64

var ErrInvalidScopeName = errors.New("invalid scope name")

// ValidScopeName reports whether name may be registered on a client and
// requested at the token endpoint.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ClientScopes trims and de-duplicates the scopes a client is registered
// with, keeping order. The first malformed name fails with
// ErrInvalidScopeName.
func ClientScopes(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !ValidScopeName(n) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScopeName, n)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
