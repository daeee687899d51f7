// Package handler contains the HTTP request handlers. Handlers are thin:
// they parse the request, call into the service layer, and write the
// response. Business logic stays out.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/topnews/internal/auth"
	"github.com/sakif/topnews/internal/model"
	"github.com/sakif/topnews/internal/service"
)

// PagesHandler renders the HTML pages. Each page template is composed with
// base.html at startup; a page name maps to its parsed set.
type PagesHandler struct {
	pages     map[string]*template.Template
	identity  *service.IdentityService
	providers *auth.Registry
	logger    *slog.Logger
}

// pageData is what every template receives. User is nil for anonymous
// visitors.
type pageData struct {
	Title     string
	User      *model.User
	Providers []string
	LoginErr  bool
	NewsID    string
}

func NewPagesHandler(
	templateDir string,
	identity *service.IdentityService,
	providers *auth.Registry,
	logger *slog.Logger,
) (*PagesHandler, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"index", "login", "news", "changelog"} {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("handler/pages: parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PagesHandler{
		pages:     pages,
		identity:  identity,
		providers: providers,
		logger:    logger,
	}, nil
}

// HandleIndex serves the front page.
//
// HTTP: GET /
func (h *PagesHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index", pageData{
		Title: "Top News",
		User:  h.sessionUser(r),
	})
}

// HandleLoginPage serves the login page: one link per configured OAuth
// provider plus the local name/password form.
//
// HTTP: GET /login
func (h *PagesHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", pageData{
		Title:     "Top News — Login",
		User:      h.sessionUser(r),
		Providers: h.providers.Names(),
		LoginErr:  r.URL.Query().Get("login") == "failed" || r.URL.Query().Get("auth") == "denied",
	})
}

// HandleNewsPage serves a single news item's page.
//
// HTTP: GET /news/{newsid}
func (h *PagesHandler) HandleNewsPage(w http.ResponseWriter, r *http.Request) {
	newsID := chi.URLParam(r, "newsid")
	h.render(w, "news", pageData{
		Title:  "Top News — " + newsID,
		User:   h.sessionUser(r),
		NewsID: newsID,
	})
}

// HandleChangelog serves the changelog page.
//
// HTTP: GET /about/changelog
func (h *PagesHandler) HandleChangelog(w http.ResponseWriter, r *http.Request) {
	h.render(w, "changelog", pageData{
		Title: "Top News — Changelog",
		User:  h.sessionUser(r),
	})
}

// HandleNotFound redirects any unmatched path to the front page instead of
// serving a 404.
func (h *PagesHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *PagesHandler) render(w http.ResponseWriter, page string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sessionUser resolves the logged-in user, if any. Pages behind
// OptionalAuth get a user id in the context when the session cookie is
// valid; anything else renders the anonymous view.
func (h *PagesHandler) sessionUser(r *http.Request) *model.User {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := h.identity.GetUserByID(userID)
	if err != nil {
		return nil
	}
	return user
}
