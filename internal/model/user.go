// Package model defines the data structures used throughout the application.
package model

// User is one record of the user directory.
//
// The JSON field names are the wire format: records are stored serialized in
// the directory store and returned verbatim by GET /user/{userid}, so the
// tags here ARE the public contract. Don't rename them casually — existing
// stored records would stop round-tripping.
//
// ID is derived from the display name at creation time (lowercased) and is
// stable once assigned. Key is the provider-composite lookup key, e.g.
// "twitter12345" — one key per (provider, external account) pairing.
type User struct {
	ID        string `json:"id"`        // lowercase(Name), unique across all users
	Key       string `json:"key"`       // provider + provider user ID
	Karma     int    `json:"karma"`     // starts at 10; managed elsewhere
	Name      string `json:"name"`      // display name from the provider profile
	Thumbnail string `json:"thumbnail"` // avatar URL
	URL       string `json:"url"`       // profile/blog URL from the provider
}
