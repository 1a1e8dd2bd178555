// Package weburl validates free-form user input as absolute URLs before the
// fetcher is allowed near it.
package weburl

import "net/url"

// IsValid reports whether candidate parses as a strict absolute URL with a
// scheme and a host. Local development forms like http://localhost:3000 are
// accepted; schemeless strings are not. Parse failure is the false case,
// never a panic.
func IsValid(candidate string) bool {
	if candidate == "" {
		return false
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
