// Package service — identity reconciliation business logic.
//
// IdentityService sits between the HTTP handlers and the storage layers:
//
//	AuthHandler (HTTP) → IdentityService → directory.Index (in memory)
//	                                     → repository.UserDirectory (durable)
//
// Its one real job is Reconcile: map a (provider, profile) pair to exactly
// one internal user record, creating it on first sight. Everything else
// (local password accounts, lookups for /api/me) hangs off the same index.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/topnews/internal/apperror"
	"github.com/sakif/topnews/internal/auth"
	"github.com/sakif/topnews/internal/directory"
	"github.com/sakif/topnews/internal/model"
	"github.com/sakif/topnews/internal/repository"
)

// localProvider is the pseudo-provider for password accounts. It shares the
// provider-key namespace with the OAuth providers so a local registration
// and an OAuth login can never silently claim the same id.
const localProvider = "local"

// initialKarma is what every new user starts with.
const initialKarma = 10

type IdentityService struct {
	index     *directory.Index
	store     repository.UserDirectory
	creds     repository.CredentialStore
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewIdentityService(
	index *directory.Index,
	store repository.UserDirectory,
	creds repository.CredentialStore,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		index:     index,
		store:     store,
		creds:     creds,
		passwords: passwords,
		logger:    logger,
	}
}

// Reconcile maps a provider profile to exactly one internal user record.
//
// Flow:
//  1. providerKey = provider + externalID. If the index knows it, return
//     the stored record unchanged — stale provider data never refreshes a
//     record.
//  2. Otherwise derive id = lowercase(name) and build a fresh record with
//     the initial karma.
//  3. CompareAndInsert does check-then-create under the index lock, so two
//     concurrent first-sight callbacks for the same key produce one record
//     and both callers observe it. A derived id owned by a different
//     provider key fails with DuplicateIdentity.
//  4. Persist to the directory store. If the write fails, the index entry
//     is rolled back and the caller gets a StoreWrite error — memory never
//     claims a record the store doesn't hold.
func (s *IdentityService) Reconcile(ctx context.Context, profile *auth.Profile) (*model.User, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/identity: profile must not be nil")
	}

	key := profile.Provider + profile.ExternalID

	if u, ok := s.index.LookupByProviderKey(key); ok {
		return u, nil
	}

	if profile.Name == "" {
		return nil, apperror.InvalidProfile("name", fmt.Sprintf("%s profile has no name", profile.Provider))
	}

	user := &model.User{
		ID:        strings.ToLower(profile.Name),
		Key:       key,
		Karma:     initialKarma,
		Name:      profile.Name,
		Thumbnail: profile.Thumbnail,
		URL:       profile.URL,
	}

	resolved, created, err := s.index.CompareAndInsert(user)
	if err != nil {
		return nil, fmt.Errorf("service/identity: reconciling %s: %w", key, err)
	}
	if !created {
		// Lost the first-sight race; the winner persisted the record.
		return resolved, nil
	}

	if err := s.persist(ctx, resolved); err != nil {
		s.index.Remove(resolved.Key, resolved.ID)
		return nil, err
	}

	s.logger.Info("new user created",
		slog.String("userID", resolved.ID),
		slog.String("provider", profile.Provider),
	)

	return resolved, nil
}

// RegisterLocal creates a password account. It goes through the same
// check-then-create path as an OAuth first sight, so name collisions with
// OAuth identities are rejected the same way. The bcrypt hash lives in the
// credential namespace, never inside the public record.
func (s *IdentityService) RegisterLocal(ctx context.Context, name, password string) (*model.User, error) {
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	id := strings.ToLower(name)
	user := &model.User{
		ID:    id,
		Key:   localProvider + id,
		Karma: initialKarma,
		Name:  name,
	}

	resolved, created, err := s.index.CompareAndInsert(user)
	if err != nil {
		return nil, fmt.Errorf("service/identity: registering %q: %w", name, err)
	}
	if !created {
		// The local key already exists: this exact account was registered
		// before. Registration is not login.
		return nil, apperror.Conflict("user", id)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		s.index.Remove(resolved.Key, resolved.ID)
		return nil, err
	}

	if err := s.creds.SetCredential(ctx, resolved.ID, hash); err != nil {
		s.index.Remove(resolved.Key, resolved.ID)
		return nil, apperror.StoreWrite(err)
	}

	if err := s.persist(ctx, resolved); err != nil {
		s.index.Remove(resolved.Key, resolved.ID)
		return nil, err
	}

	s.logger.Info("local user registered", slog.String("userID", resolved.ID))

	return resolved, nil
}

// AuthenticateLocal verifies a name/password pair against the stored
// credential. Every failure path returns the same Unauthorized error so a
// caller can't probe which names exist.
func (s *IdentityService) AuthenticateLocal(ctx context.Context, name, password string) (*model.User, error) {
	id := strings.ToLower(name)

	user, ok := s.index.LookupByID(id)
	if !ok {
		return nil, apperror.Unauthorized("invalid name or password")
	}

	hash, err := s.creds.Credential(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/identity: reading credential for %s: %w", id, err)
	}
	if hash == "" {
		// OAuth-only account — it has no password to check.
		return nil, apperror.Unauthorized("invalid name or password")
	}

	if err := s.passwords.Verify(hash, password); err != nil {
		return nil, apperror.Unauthorized("invalid name or password")
	}

	return user, nil
}

// GetUserByID returns the record for an internal id, from the index.
func (s *IdentityService) GetUserByID(id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}
	user, ok := s.index.LookupByID(id)
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}

// persist serializes a record and writes it under its provider key.
func (s *IdentityService) persist(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("service/identity: serializing user %s: %w", user.ID, err)
	}
	if err := s.store.Put(ctx, user.Key, data); err != nil {
		s.logger.Warn("directory store write failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return apperror.StoreWrite(err)
	}
	return nil
}
