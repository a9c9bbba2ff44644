package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

func (a *API) listQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.QuestionFilter{
		Difficulty: difficultyParam(r),
		Category:   strings.TrimSpace(query.Get("category")),
	}
	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			fail(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		filter.IsActive = &active
	}
	questions, err := a.questions.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, questions)
}

func (a *API) questionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.questions.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, stats)
}

func (a *API) getQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := a.questions.Get(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, question)
}

func (a *API) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req app.QuestionInput
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	question, err := a.questions.Create(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, "Question created", question)
}

// bulkCreateQuestions accepts a bare array or {"questions": [...]}.
func (a *API) bulkCreateQuestions(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decode(r, &raw); err != nil {
		a.fail(w, r, err)
		return
	}
	var inputs []app.QuestionInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		var wrapped struct {
			Questions []app.QuestionInput `json:"questions"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			fail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		inputs = wrapped.Questions
	}
	if len(inputs) == 0 {
		fail(w, http.StatusBadRequest, "questions array is required")
		return
	}
	questions, err := a.questions.BulkCreate(r.Context(), inputs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created(w, strconv.Itoa(len(questions))+" questions created", questions)
}

func (a *API) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var patch app.QuestionPatch
	if err := decode(r, &patch); err != nil {
		a.fail(w, r, err)
		return
	}
	question, err := a.questions.Update(r.Context(), chi.URLParam(r, "questionID"), patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, question)
}

func (a *API) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := a.questions.Delete(r.Context(), chi.URLParam(r, "questionID")); err != nil {
		a.fail(w, r, err)
		return
	}
	done(w, "Question deleted")
}

func (a *API) toggleQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := a.questions.Toggle(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, question)
}
