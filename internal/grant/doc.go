// Package grant implements the token endpoint grants of the service.
//
// The central piece is FederatedGrant: it accepts a bearer token issued by an
// external identity provider in place of a username and password, verifies it
// through a pluggable Verifier, and issues the server's own session, access
// token and (when the refresh grant is enabled) refresh token.
//
// Flow of FederatedGrant.CompleteFlow, in fixed order:
//
//  1. client credentials (body, then HTTP basic)
//  2. client authentication, scoped to the grant identifier
//  3. external token extraction
//  4. optional external profile fetch
//  5. credential verification
//  6. scope validation
//  7. session creation
//  8. token issuance and persistence (Issuer)
//  9. response formatting
//
// Every stage short-circuits with a typed *Error. Client and user
// authentication failures are also reported to the EventSink.
package grant
