package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/topnews/internal/auth"
	"github.com/sakif/topnews/internal/directory"
	"github.com/sakif/topnews/internal/handler"
	"github.com/sakif/topnews/internal/model"
	"github.com/sakif/topnews/internal/service"
)

// memStore is an in-memory stand-in for both the user directory and the
// credential store.
type memStore struct {
	mu      sync.Mutex
	records map[string][]byte
	creds   map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string][]byte),
		creds:   make(map[string]string),
	}
}

func (s *memStore) LoadAll(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.records))
	for k, v := range s.records {
		out[k] = string(v)
	}
	return out, nil
}

func (s *memStore) Put(ctx context.Context, key string, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.records[key] = record
	return nil
}

func (s *memStore) SetCredential(ctx context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[userID] = hash
	return nil
}

func (s *memStore) Credential(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds[userID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestIdentity builds an IdentityService over an empty index and
// in-memory stores.
func newTestIdentity() (*service.IdentityService, *directory.Index, *memStore) {
	ix := directory.New()
	store := newMemStore()
	svc := service.NewIdentityService(ix, store, store, auth.NewPasswordServiceForTest(4), testLogger())
	return svc, ix, store
}

func seedUser(t *testing.T, ix *directory.Index, u model.User) {
	t.Helper()
	_, created, err := ix.CompareAndInsert(&u)
	assert.NoError(t, err)
	assert.True(t, created)
}

func TestUserHandler_HandleGetUser(t *testing.T) {
	identity, ix, _ := newTestIdentity()
	seedUser(t, ix, model.User{
		ID:        "ana",
		Key:       "twitter12345",
		Karma:     10,
		Name:      "Ana",
		Thumbnail: "https://pbs.example/ana.png",
		URL:       "https://ana.example",
	})

	h := handler.NewUserHandler(identity, testLogger())
	router := chi.NewRouter()
	router.Get("/user/{userid}", h.HandleGetUser)

	t.Run("known user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user/ana", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{
			"id": "ana",
			"key": "twitter12345",
			"karma": 10,
			"name": "Ana",
			"thumbnail": "https://pbs.example/ana.png",
			"url": "https://ana.example"
		}`, rr.Body.String())
	})

	t.Run("unknown user returns empty object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user/nobody", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{}`, rr.Body.String())
	})

	t.Run("lookup is by id not provider key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user/twitter12345", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{}`, rr.Body.String())
	})
}

func TestUserHandler_HandleMe(t *testing.T) {
	identity, ix, _ := newTestIdentity()
	seedUser(t, ix, model.User{ID: "ana", Key: "twitter12345", Karma: 10, Name: "Ana"})

	tokens, err := auth.NewTokenService("test-secret-key-at-least-16", time.Hour)
	assert.NoError(t, err)

	h := handler.NewUserHandler(identity, testLogger())
	router := chi.NewRouter()
	router.With(auth.RequireAuth(tokens)).Get("/api/me", h.HandleMe)

	t.Run("valid session", func(t *testing.T) {
		token, err := tokens.Generate("ana")
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"id":"ana"`)
	})

	t.Run("no session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("session for a user the index dropped", func(t *testing.T) {
		token, err := tokens.Generate("ghost")
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
