package http

import "net/http"

func (a *API) participantDashboard(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	dashboard, err := a.teams.Dashboard(r.Context(), teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, dashboard)
}

func (a *API) participantState(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	team, err := a.teams.Team(r.Context(), teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, team)
}

func (a *API) participantCheckpoints(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	checkpoints, err := a.teams.Checkpoints(r.Context(), teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, checkpoints)
}

func (a *API) participantBoard(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	board, err := a.boards.StateForTeam(r.Context(), teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, board)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.teams.Leaderboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, entries)
}

func (a *API) canRoll(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	eligibility, err := a.engine.CanRoll(r.Context(), teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, eligibility)
}

func (a *API) rollDice(w http.ResponseWriter, r *http.Request) {
	teamID, err := teamOf(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.engine.RollDice(r.Context(), teamID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Dice rolled", Data: result})
}
