// Package redisstore implements the user directory on a Redis hash.
//
// Layout:
//
//	HGETALL usertable          → providerKey → serialized user record
//	HSET    usertable k v      → write one record
//	HGET    usertable:creds id → bcrypt hash for password-login accounts
//
// A single hash per namespace keeps the whole directory bulk-readable in one
// round trip, which is exactly what the startup index build needs.
package redisstore

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/topnews/internal/repository"
)

// compile-time checks that *Store implements the repository contracts
var (
	_ repository.UserDirectory   = (*Store)(nil)
	_ repository.CredentialStore = (*Store)(nil)
)

type Store struct {
	client    *goredis.Client
	userTable string
	credTable string
}

// New connects to Redis and verifies the connection with a short ping.
// userTable is the hash name holding the directory (default "usertable").
func New(addr, password, userTable string) (*Store, error) {
	if userTable == "" {
		userTable = "usertable"
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: pinging %s: %w", addr, err)
	}

	return &Store{
		client:    client,
		userTable: userTable,
		credTable: userTable + ":creds",
	}, nil
}

// LoadAll fetches the entire directory hash in one HGETALL.
func (s *Store) LoadAll(ctx context.Context) (map[string]string, error) {
	hash, err := s.client.HGetAll(ctx, s.userTable).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: loading %s: %w", s.userTable, err)
	}
	return hash, nil
}

// Put writes one serialized record under its provider key.
func (s *Store) Put(ctx context.Context, key string, record []byte) error {
	if err := s.client.HSet(ctx, s.userTable, key, record).Err(); err != nil {
		return fmt.Errorf("redisstore: writing %s[%s]: %w", s.userTable, key, err)
	}
	return nil
}

func (s *Store) SetCredential(ctx context.Context, userID, hash string) error {
	if err := s.client.HSet(ctx, s.credTable, userID, hash).Err(); err != nil {
		return fmt.Errorf("redisstore: writing credential for %s: %w", userID, err)
	}
	return nil
}

func (s *Store) Credential(ctx context.Context, userID string) (string, error) {
	hash, err := s.client.HGet(ctx, s.credTable, userID).Result()
	if err == goredis.Nil {
		return "", nil // no password set for this account
	}
	if err != nil {
		return "", fmt.Errorf("redisstore: reading credential for %s: %w", userID, err)
	}
	return hash, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
