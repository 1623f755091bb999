// Package verifier provides grant.Verifier implementations.
//
// IdentityVerifier trusts a fetched provider profile and maps its id to a
// local user through the linked identity table. AssertionVerifier trusts a
// signed JWT presented as the external token instead, so no provider call
// is needed. Both are deterministic for a given (token, profile) and the
// identity table contents.
package verifier
