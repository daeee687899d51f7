package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/topnews/internal/repository"
)

// compile-time checks that *DB implements the repository contracts
var (
	_ repository.UserDirectory   = (*DB)(nil)
	_ repository.CredentialStore = (*DB)(nil)
)

// LoadAll reads the whole usertable into a map, mirroring Redis HGETALL.
func (db *DB) LoadAll(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, record FROM usertable`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading usertable: %w", err)
	}
	defer rows.Close()

	hash := make(map[string]string)
	for rows.Next() {
		var key, record string
		if err := rows.Scan(&key, &record); err != nil {
			return nil, fmt.Errorf("sqlite: scanning usertable row: %w", err)
		}
		hash[key] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating usertable: %w", err)
	}

	return hash, nil
}

// Put writes one serialized record, overwriting any existing value for the
// key — same last-write-wins semantics as HSET.
func (db *DB) Put(ctx context.Context, key string, record []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO usertable (key, record) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET record = excluded.record`,
		key, string(record),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing usertable[%s]: %w", key, err)
	}
	return nil
}

func (db *DB) SetCredential(ctx context.Context, userID, hash string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO usercreds (user_id, hash) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET hash = excluded.hash`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing credential for %s: %w", userID, err)
	}
	return nil
}

func (db *DB) Credential(ctx context.Context, userID string) (string, error) {
	var hash string
	err := db.conn.QueryRowContext(ctx,
		`SELECT hash FROM usercreds WHERE user_id = ?`, userID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil // no password set for this account
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: reading credential for %s: %w", userID, err)
	}
	return hash, nil
}
