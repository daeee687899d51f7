package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubName = "github"

// githubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal what we map.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID         int64  `json:"id"`          // GitHub's numeric user ID — stable, never changes
	Login      string `json:"login"`       // GitHub username, e.g. "sakif"
	GravatarID string `json:"gravatar_id"` // legacy field, often empty on modern accounts
	AvatarURL  string `json:"avatar_url"`  // GitHub-hosted avatar
	Blog       string `json:"blog"`        // blog/homepage URL (may be empty)
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization
// Code flow. The code-for-token exchange happens server-to-server with the
// client secret; the access token never touches the browser.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string // overridable in tests
}

// NewGitHubProvider creates a GitHubProvider with the given OAuth App
// credentials. callbackURL must exactly match the "Authorization callback
// URL" configured at github.com/settings/developers.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		apiBase: "https://api.github.com",
	}
}

func (p *GitHubProvider) Name() string {
	return githubName
}

// AuthCodeURL returns the GitHub authorization URL. The PKCE challenge is
// passed along; GitHub verifies it when the app opts in and ignores it
// otherwise, so the one handler flow serves both providers.
func (p *GitHubProvider) AuthCodeURL(state, codeChallenge string) string {
	return p.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange completes the OAuth flow: trades the code for an access token,
// calls the GitHub /user API, and maps the response to a Profile.
//
// Field mapping (the record shape existing directory entries were written
// with): name ← login, thumbnail ← gravatar URL from gravatar_id,
// url ← blog. When gravatar_id is empty — which modern GitHub responses
// are — the GitHub-hosted avatar_url is used instead.
func (p *GitHubProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Profile, error) {
	token, err := p.config.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging github OAuth code: %w", err)
	}

	// oauth2.Config.Client returns an *http.Client that adds the
	// Authorization header to every request.
	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.apiBase + "/user")
	if err != nil {
		return nil, fmt.Errorf("auth: calling github /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: github /user API returned status %d", resp.StatusCode)
	}

	var gh githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return nil, fmt.Errorf("auth: decoding github /user response: %w", err)
	}

	if gh.ID == 0 {
		return nil, fmt.Errorf("auth: github returned an invalid user (ID = 0)")
	}

	thumbnail := gh.AvatarURL
	if gh.GravatarID != "" {
		thumbnail = "https://www.gravatar.com/avatar/" + gh.GravatarID
	}

	return &Profile{
		Provider:   githubName,
		ExternalID: fmt.Sprintf("%d", gh.ID),
		Name:       gh.Login,
		Thumbnail:  thumbnail,
		URL:        gh.Blog,
	}, nil
}
