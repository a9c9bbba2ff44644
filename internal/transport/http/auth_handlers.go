package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"snakes-hunt-service/internal/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "username and password are required")
		return
	}
	result, err := a.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if errors.Is(err, domain.ErrTeamDisqualified) {
		fail(w, http.StatusForbidden, err.Error())
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Login successful", Data: result})
}

func (a *API) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := a.auth.ListAdmins(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, admins)
}

func (a *API) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	account, err := a.auth.CreateAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, "Admin created", account)
}

func (a *API) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.DeleteAdmin(r.Context(), chi.URLParam(r, "accountID")); err != nil {
		a.fail(w, r, err)
		return
	}
	done(w, "Admin deleted")
}

// teamOf returns the team bound to a participant token.
func teamOf(r *http.Request) (string, error) {
	claims, found := claimsFrom(r.Context())
	if !found || claims.TeamID == "" {
		return "", domain.ErrTeamNotFound
	}
	return claims.TeamID, nil
}
