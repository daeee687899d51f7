package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"

	"github.com/sakif/topnews/internal/apperror"
)

// fakeOAuthServer stands in for both the provider's token endpoint and its
// profile API. profileBody is returned for any non-token request.
func fakeOAuthServer(t *testing.T, profileBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"test-access-token","token_type":"bearer"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(profileBody))
	}))
}

// pointAt rewires an oauth2.Config and API base at the fake server.
func pointAt(cfg *oauth2.Config, srv *httptest.Server) {
	cfg.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/oauth/authorize",
		TokenURL: srv.URL + "/oauth/token",
	}
}

func TestRegistry_GetKnownProvider(t *testing.T) {
	gh := NewGitHubProvider("id", "secret", "http://localhost/cb")
	reg := NewRegistry(gh)

	p, err := reg.Get("github")
	assert.NoError(t, err)
	assert.Equal(t, "github", p.Name())
}

func TestRegistry_UnknownProviderIsUnsupported(t *testing.T) {
	reg := NewRegistry(NewGitHubProvider("id", "secret", "http://localhost/cb"))

	_, err := reg.Get("myspace")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnsupportedProvider))
}

func TestGitHubAuthCodeURL_CarriesStateAndChallenge(t *testing.T) {
	gh := NewGitHubProvider("client-id", "secret", "http://localhost/login/github/callback")

	u := gh.AuthCodeURL("state-abc", "challenge-xyz")
	assert.Contains(t, u, "state=state-abc")
	assert.Contains(t, u, "code_challenge=challenge-xyz")
	assert.Contains(t, u, "code_challenge_method=S256")
	assert.Contains(t, u, "client_id=client-id")
}

func TestGitHubExchange_MapsProfileFields(t *testing.T) {
	srv := fakeOAuthServer(t, `{"id":7,"login":"Bob","gravatar_id":"g1","blog":"b1","avatar_url":"https://avatars.example/7"}`)
	defer srv.Close()

	gh := NewGitHubProvider("id", "secret", "http://localhost/cb")
	pointAt(gh.config, srv)
	gh.apiBase = srv.URL

	profile, err := gh.Exchange(context.Background(), "code", "verifier")
	assert.NoError(t, err)
	assert.Equal(t, "github", profile.Provider)
	assert.Equal(t, "7", profile.ExternalID)
	assert.Equal(t, "Bob", profile.Name)
	assert.True(t, strings.HasSuffix(profile.Thumbnail, "g1"), "thumbnail %q should be built from the gravatar id", profile.Thumbnail)
	assert.Equal(t, "b1", profile.URL)
}

func TestGitHubExchange_EmptyGravatarFallsBackToAvatar(t *testing.T) {
	srv := fakeOAuthServer(t, `{"id":7,"login":"Bob","gravatar_id":"","blog":"","avatar_url":"https://avatars.example/7"}`)
	defer srv.Close()

	gh := NewGitHubProvider("id", "secret", "http://localhost/cb")
	pointAt(gh.config, srv)
	gh.apiBase = srv.URL

	profile, err := gh.Exchange(context.Background(), "code", "verifier")
	assert.NoError(t, err)
	assert.Equal(t, "https://avatars.example/7", profile.Thumbnail)
}

func TestGitHubExchange_RejectsInvalidUser(t *testing.T) {
	srv := fakeOAuthServer(t, `{"id":0,"login":""}`)
	defer srv.Close()

	gh := NewGitHubProvider("id", "secret", "http://localhost/cb")
	pointAt(gh.config, srv)
	gh.apiBase = srv.URL

	_, err := gh.Exchange(context.Background(), "code", "verifier")
	assert.Error(t, err)
}

func TestTwitterExchange_MapsProfileFields(t *testing.T) {
	srv := fakeOAuthServer(t, `{"data":{"id":"12345","name":"Ana Banana","username":"Ana","profile_image_url":"u1","url":"p1"}}`)
	defer srv.Close()

	tw := NewTwitterProvider("id", "secret", "http://localhost/cb")
	pointAt(tw.config, srv)
	tw.apiBase = srv.URL

	profile, err := tw.Exchange(context.Background(), "code", "verifier")
	assert.NoError(t, err)
	assert.Equal(t, "twitter", profile.Provider)
	assert.Equal(t, "12345", profile.ExternalID)
	assert.Equal(t, "Ana", profile.Name, "name must come from the screen name, not the display name")
	assert.Equal(t, "u1", profile.Thumbnail)
	assert.Equal(t, "p1", profile.URL)
}

func TestTwitterExchange_RejectsEmptyID(t *testing.T) {
	srv := fakeOAuthServer(t, `{"data":{"id":"","username":""}}`)
	defer srv.Close()

	tw := NewTwitterProvider("id", "secret", "http://localhost/cb")
	pointAt(tw.config, srv)
	tw.apiBase = srv.URL

	_, err := tw.Exchange(context.Background(), "code", "verifier")
	assert.Error(t, err)
}
