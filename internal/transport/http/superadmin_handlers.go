package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

type passwordRequest struct {
	Password string `json:"password"`
}

type roomRequest struct {
	Room int `json:"room"`
}

type mapRequest struct {
	MapID string `json:"mapId"`
}

type timerRequest struct {
	Seconds int    `json:"seconds"`
	Reason  string `json:"reason"`
}

type createMapRequest struct {
	Name string `json:"name"`
}

type ruleRequest struct {
	Type  domain.RuleType `json:"type"`
	Start int             `json:"startPos"`
	End   int             `json:"endPos"`
}

func (a *API) createTeam(w http.ResponseWriter, r *http.Request) {
	var req app.NewTeamInput
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	team, err := a.teams.CreateTeam(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, "Team created", team)
}

func (a *API) updateTeamPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.teams.UpdatePassword(r.Context(), chi.URLParam(r, "teamID"), req.Password); err != nil {
		a.fail(w, r, err)
		return
	}
	done(w, "Password updated")
}

func (a *API) disqualifyTeam(w http.ResponseWriter, r *http.Request) {
	team, err := a.engine.Disqualify(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Team disqualified", Data: team})
}

func (a *API) reinstateTeam(w http.ResponseWriter, r *http.Request) {
	team, err := a.engine.Reinstate(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Team reinstated", Data: team})
}

func (a *API) changeRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	team, err := a.engine.ChangeRoom(r.Context(), chi.URLParam(r, "teamID"), req.Room)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, team)
}

func (a *API) assignMap(w http.ResponseWriter, r *http.Request) {
	var req mapRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	team, err := a.engine.AssignMap(r.Context(), chi.URLParam(r, "teamID"), req.MapID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, team)
}

func (a *API) adjustTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	team, err := a.engine.AdjustTimer(r.Context(), chi.URLParam(r, "teamID"), req.Seconds, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, team)
}

func (a *API) setTimer(w http.ResponseWriter, r *http.Request) {
	var req timerRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	team, err := a.engine.SetTimer(r.Context(), chi.URLParam(r, "teamID"), req.Seconds, req.Reason)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, team)
}

func (a *API) undoCheckpoint(w http.ResponseWriter, r *http.Request) {
	result, err := a.engine.UndoCheckpoint(r.Context(), chi.URLParam(r, "checkpointID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: result.Message, Data: result})
}

func (a *API) listMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := a.boards.ListMaps(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, maps)
}

func (a *API) createMap(w http.ResponseWriter, r *http.Request) {
	var req createMapRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	m, err := a.boards.CreateMap(r.Context(), req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, "Map created", m)
}

func (a *API) getMap(w http.ResponseWriter, r *http.Request) {
	m, err := a.boards.GetMap(r.Context(), chi.URLParam(r, "mapID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, m)
}

func (a *API) deleteMap(w http.ResponseWriter, r *http.Request) {
	if err := a.boards.DeleteMap(r.Context(), chi.URLParam(r, "mapID")); err != nil {
		a.fail(w, r, err)
		return
	}
	done(w, "Map deleted")
}

func (a *API) addRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	rule, err := a.boards.AddRule(r.Context(), chi.URLParam(r, "mapID"), domain.RuleType(strings.ToUpper(string(req.Type))), req.Start, req.End)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, "Rule added", rule)
}

func (a *API) removeRule(w http.ResponseWriter, r *http.Request) {
	if err := a.boards.RemoveRule(r.Context(), chi.URLParam(r, "ruleID")); err != nil {
		a.fail(w, r, err)
		return
	}
	done(w, "Rule removed")
}
