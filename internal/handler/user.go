package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/topnews/internal/auth"
	"github.com/sakif/topnews/internal/service"
)

// UserHandler serves the public user lookup and the session introspection
// endpoint. Both read exclusively from the in-memory index — no request
// ever touches the directory store.
type UserHandler struct {
	identity *service.IdentityService
	logger   *slog.Logger
}

func NewUserHandler(identity *service.IdentityService, logger *slog.Logger) *UserHandler {
	return &UserHandler{identity: identity, logger: logger}
}

// HandleGetUser returns a user's public record as JSON.
//
// HTTP: GET /user/{userid}
//
// An unknown id is not an error on this endpoint: the response is 200 with
// an empty JSON object, so callers can probe without branching on status.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.GetUserByID(chi.URLParam(r, "userid"))
	if err != nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleMe returns the record of the currently logged-in user.
//
// HTTP: GET /api/me  (requires auth)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}

	user, err := h.identity.GetUserByID(userID)
	if err != nil {
		// A valid token for a user the index no longer knows — treat the
		// session as dead.
		h.logger.Warn("session user not in index", slog.String("userID", userID))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
