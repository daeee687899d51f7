package handler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/topnews/internal/auth"
	"github.com/sakif/topnews/internal/service"
)

const (
	stateCookie = "oauth_state"
	pkceCookie  = "oauth_pkce"
	// long enough for the user to approve on the provider's page,
	// short enough to limit replay
	flowCookieMaxAge = 600
)

// AuthHandler owns the login surface: the OAuth flows for the registered
// providers, local password login and registration, and logout.
//
// DEPENDENCY CHAIN:
//   - providers *auth.Registry          → per-provider code exchange
//   - identity  *service.IdentityService → reconcile profile → user record
//   - tokens    *auth.TokenService      → session cookie tokens
type AuthHandler struct {
	providers *auth.Registry
	identity  *service.IdentityService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAuthHandler(
	providers *auth.Registry,
	identity *service.IdentityService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		providers: providers,
		identity:  identity,
		tokens:    tokens,
		logger:    logger,
	}
}

// HandleProviderLogin begins an OAuth flow.
//
// HTTP: GET /login/{provider}
//
// A random state value goes into a short-lived cookie for the CSRF check on
// callback, and a PKCE verifier goes into a second cookie — twitter
// requires PKCE, github tolerates it, so both flows run the same way.
func (h *AuthHandler) HandleProviderLogin(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   flowCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	verifier, challenge := generatePKCE()
	http.SetCookie(w, &http.Cookie{
		Name:     pkceCookie,
		Value:    verifier,
		Path:     "/",
		MaxAge:   flowCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthCodeURL(state, challenge), http.StatusTemporaryRedirect)
}

// HandleProviderCallback completes an OAuth flow.
//
// HTTP: GET /login/{provider}/callback?code=xxx&state=yyy
//
// Flow: CSRF state check → exchange code for a profile → reconcile against
// the user directory → issue the session cookie → redirect home.
func (h *AuthHandler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	stateC, err := r.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || r.URL.Query().Get("state") != stateC.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", p.Name()))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Both flow cookies are single-use.
	clearCookie(w, stateCookie)
	clearCookie(w, pkceCookie)

	// The provider reports "user denied" (and friends) via the error param.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: provider returned error",
			slog.String("provider", p.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/login?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	verifier := ""
	if c, err := r.Cookie(pkceCookie); err == nil {
		verifier = c.Value
	}

	profile, err := p.Exchange(r.Context(), code, verifier)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	user, err := h.identity.Reconcile(r.Context(), profile)
	if err != nil {
		h.logger.Error("auth callback: reconcile failed",
			slog.String("provider", p.Name()),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("provider", p.Name()),
	)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandlePasswordLogin authenticates a local account.
//
// HTTP: POST /login  (form fields: name, password)
func (h *AuthHandler) HandlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	user, err := h.identity.AuthenticateLocal(r.Context(), r.PostFormValue("name"), r.PostFormValue("password"))
	if err != nil {
		h.logger.Info("password login rejected", slog.String("error", err.Error()))
		http.Redirect(w, r, "/login?login=failed", http.StatusSeeOther)
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleRegister creates a local account and logs it in.
//
// HTTP: POST /register  (form fields: name, password)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	user, err := h.identity.RegisterLocal(r.Context(), r.PostFormValue("name"), r.PostFormValue("password"))
	if err != nil {
		h.logger.Info("registration rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if err := h.startSession(w, user.ID); err != nil {
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("local user registered", slog.String("userID", user.ID))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie and sends the user home.
//
// HTTP: GET /logout
//
// The token itself stays valid until expiry (stateless sessions); without
// the cookie the browser can no longer present it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, auth.SessionCookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// startSession issues the session token and sets the HttpOnly cookie, with
// MaxAge aligned to the token lifetime.
func (h *AuthHandler) startSession(w http.ResponseWriter, userID string) error {
	token, err := h.tokens.Generate(userID)
	if err != nil {
		h.logger.Error("session token generation failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable behind HTTPS
	})
	return nil
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// generatePKCE returns a fresh verifier and its S256 challenge.
func generatePKCE() (verifier, challenge string) {
	b := make([]byte, 32)
	_, _ = rand.Read(b)

	verifier = base64.RawURLEncoding.EncodeToString(b)
	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])
	return verifier, challenge
}
