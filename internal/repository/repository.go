// Package repository defines the storage contracts for the user directory.
//
// The directory is hash-shaped: one namespace holding providerKey →
// serialized user record. It is read in bulk exactly once at startup (to
// build the in-memory index) and written one field at a time when a new
// user is created. There are no transactions and no versioning — the
// in-memory index is the read path for everything after boot.
package repository

import "context"

// UserDirectory is the durable key-value namespace holding all user records.
type UserDirectory interface {
	// LoadAll returns every record in the namespace, keyed by provider key,
	// values still serialized. Called once at startup; a failure here is
	// fatal — the process must not run with an empty or partial directory.
	LoadAll(ctx context.Context) (map[string]string, error)

	// Put writes one newly created record. Callers must treat a failure as
	// "this user does not durably exist" — never proceed as if it does.
	Put(ctx context.Context, key string, record []byte) error
}

// CredentialStore holds bcrypt hashes for password-login accounts, keyed by
// internal user id. Kept in a separate namespace so hashes never travel
// inside the serialized user record (which is public via /user/{userid}).
type CredentialStore interface {
	SetCredential(ctx context.Context, userID, hash string) error

	// Credential returns the stored hash, or "" if the user has none
	// (OAuth-only accounts have no password).
	Credential(ctx context.Context, userID string) (string, error)
}
