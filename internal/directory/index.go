// Package directory holds the in-memory user index.
//
// The index is a process-local projection of the directory store, built
// exactly once at startup and never refreshed — a deliberate cold cache.
// Out-of-process writes to the store are invisible until restart.
//
// Two mappings are derived from the full record set:
//
//	id          → record   (primary — answers /user/{userid})
//	providerKey → id       (secondary — answers "have we seen this login?")
//
// Every key in the secondary mapping resolves to an id present in the
// primary mapping. The raw maps are never exposed; all access goes through
// the methods below, and all mutation happens under one mutex so that two
// concurrent first-sight logins for the same provider key create at most
// one record.
package directory

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/sakif/topnews/internal/apperror"
	"github.com/sakif/topnews/internal/model"
)

type Index struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	idByKey map[string]string
}

// New returns an empty index.
func New() *Index {
	return &Index{
		byID:    make(map[string]model.User),
		idByKey: make(map[string]string),
	}
}

// Build constructs the index from the raw hash returned by LoadAll.
//
// A record that fails to deserialize, or that carries no id, is logged and
// skipped — one corrupt entry must not abort startup. A later entry whose
// id collides with an earlier one is skipped too (the directory itself is
// the authority; we refuse to let load order pick a winner silently).
func Build(raw map[string]string, logger *slog.Logger) *Index {
	ix := New()

	for key, serialized := range raw {
		var u model.User
		if err := json.Unmarshal([]byte(serialized), &u); err != nil {
			logger.Warn("skipping malformed user record",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		if u.ID == "" {
			logger.Warn("skipping user record with empty id", slog.String("key", key))
			continue
		}
		if existing, ok := ix.byID[u.ID]; ok && existing.Key != key {
			logger.Warn("skipping user record with colliding id",
				slog.String("key", key),
				slog.String("id", u.ID),
				slog.String("existing_key", existing.Key),
			)
			continue
		}
		ix.byID[u.ID] = u
		ix.idByKey[key] = u.ID
	}

	return ix
}

// LookupByID returns the record for an internal id.
// The returned pointer is to a copy — callers cannot mutate the index.
func (ix *Index) LookupByID(id string) (*model.User, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	u, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	return &u, true
}

// LookupByProviderKey returns the record bound to a provider key.
func (ix *Index) LookupByProviderKey(key string) (*model.User, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	id, ok := ix.idByKey[key]
	if !ok {
		return nil, false
	}
	u, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	return &u, true
}

// CompareAndInsert is the check-then-create step of reconciliation, done
// atomically under the index lock.
//
// Outcomes:
//   - user.Key is already bound → the existing record is returned with
//     created=false. Under concurrent first-sight logins exactly one caller
//     sees created=true; the rest observe that caller's record.
//   - user.ID is owned by a different provider key → DuplicateIdentity
//     error; nothing is modified.
//   - otherwise both mappings are updated and created=true.
func (ix *Index) CompareAndInsert(user *model.User) (*model.User, bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if id, ok := ix.idByKey[user.Key]; ok {
		existing := ix.byID[id]
		return &existing, false, nil
	}

	if existing, ok := ix.byID[user.ID]; ok && existing.Key != user.Key {
		return nil, false, apperror.DuplicateIdentity(user.ID)
	}

	ix.byID[user.ID] = *user
	ix.idByKey[user.Key] = user.ID

	inserted := *user
	return &inserted, true, nil
}

// Remove undoes a CompareAndInsert whose durable write failed. It is the
// only deletion path — during normal operation the index is append-only.
func (ix *Index) Remove(key, id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	delete(ix.idByKey, key)
	delete(ix.byID, id)
}

// Len reports the number of records in the primary mapping.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}
