package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"snakes-hunt-service/internal/domain"
)

type dodgeRequest struct {
	Success bool `json:"success"`
}

type assignQuestionRequest struct {
	QuestionID string `json:"questionId"`
}

// markRequest grades either by verdict or by comparing a submitted answer.
type markRequest struct {
	IsCorrect *bool   `json:"isCorrect"`
	Answer    *string `json:"answer"`
}

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.teams.ListTeams(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, teams)
}

func (a *API) teamDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := a.teams.Detail(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, detail)
}

func (a *API) teamProgress(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := a.teams.Checkpoints(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, checkpoints)
}

func (a *API) pendingCheckpoints(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := a.teams.PendingCheckpoints(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, checkpoints)
}

func (a *API) approveCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := a.engine.ApproveCheckpoint(r.Context(), chi.URLParam(r, "checkpointID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Checkpoint approved", Data: cp})
}

func (a *API) snakeDodge(w http.ResponseWriter, r *http.Request) {
	var req dodgeRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.engine.HandleSnakeDodge(r.Context(), chi.URLParam(r, "checkpointID"), req.Success)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: result.Message, Data: result})
}

func (a *API) assignQuestion(w http.ResponseWriter, r *http.Request) {
	var req assignQuestionRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.QuestionID) == "" {
		fail(w, http.StatusBadRequest, "questionId is required")
		return
	}
	assignment, err := a.engine.AssignQuestion(r.Context(), chi.URLParam(r, "checkpointID"), req.QuestionID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, "Question assigned", assignment)
}

func (a *API) markAnswer(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	checkpointID := chi.URLParam(r, "checkpointID")

	var err error
	var result any
	switch {
	case req.IsCorrect != nil:
		result, err = a.engine.GradeCheckpoint(r.Context(), checkpointID, *req.IsCorrect)
	case req.Answer != nil:
		result, err = a.engine.GradeCheckpointAnswer(r.Context(), checkpointID, *req.Answer)
	default:
		fail(w, http.StatusBadRequest, "isCorrect or answer is required")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Answer graded", Data: result})
}

func (a *API) availableQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := a.questions.Available(r.Context(), difficultyParam(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, questions)
}

// randomQuestion draws for the requested difficulty, or by board position
// when none is given.
func (a *API) randomQuestion(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")

	var question domain.Question
	var err error
	if difficulty := difficultyParam(r); difficulty != "" {
		question, err = a.engine.PickQuestion(r.Context(), teamID, difficulty)
	} else {
		question, err = a.engine.QuestionForPosition(r.Context(), teamID)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, question)
}

func difficultyParam(r *http.Request) domain.Difficulty {
	return domain.Difficulty(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("difficulty"))))
}
