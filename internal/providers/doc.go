// Package providers holds grant.ProfileFetcher plumbing shared by every
// external identity provider: a caching, de-duplicating wrapper and a
// name → fetcher registry. Concrete providers live in subpackages.
package providers
