package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

// EventSource streams engine events to live dashboards.
type EventSource interface {
	Subscribe(ctx context.Context, teamID string) (<-chan domain.Event, func(), error)
	LastEvent(ctx context.Context, teamID string) (domain.Event, bool, error)
}

// Deps are the collaborators the HTTP surface dispatches to.
type Deps struct {
	Engine    *app.Engine
	Teams     *app.TeamService
	Questions *app.QuestionService
	Boards    *app.BoardService
	Auth      *app.AuthService
	Events    EventSource
	Health    func(ctx context.Context) error
	Log       logrus.FieldLogger
}

// API holds the request handlers.
type API struct {
	engine    *app.Engine
	teams     *app.TeamService
	questions *app.QuestionService
	boards    *app.BoardService
	auth      *app.AuthService
	events    EventSource
	health    func(ctx context.Context) error
	log       logrus.FieldLogger
	upgrader  websocket.Upgrader
}

func NewAPI(deps Deps) *API {
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &API{
		engine:    deps.Engine,
		teams:     deps.Teams,
		questions: deps.Questions,
		boards:    deps.Boards,
		auth:      deps.Auth,
		events:    deps.Events,
		health:    deps.Health,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// NewRouter wires middleware and routes.
func NewRouter(deps Deps) http.Handler {
	a := NewAPI(deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: a.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.healthz)
	r.Get("/ws", a.serveWS)

	r.Post("/api/auth/login", a.login)

	r.Route("/api/participant", func(r chi.Router) {
		r.Use(requireAuth(a.auth), requireRole(domain.RoleParticipant))
		r.Get("/dashboard", a.participantDashboard)
		r.Get("/state", a.participantState)
		r.Get("/checkpoints", a.participantCheckpoints)
		r.Get("/board", a.participantBoard)
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/dice/can-roll", a.canRoll)
		r.Post("/dice/roll", a.rollDice)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth(a.auth), requireRole(domain.RoleAdmin, domain.RoleSuperadmin))
		r.Get("/teams", a.listTeams)
		r.Get("/teams/{teamID}", a.teamDetail)
		r.Get("/teams/{teamID}/progress", a.teamProgress)
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/checkpoints/pending", a.pendingCheckpoints)
		r.Post("/checkpoints/{checkpointID}/approve", a.approveCheckpoint)
		r.Post("/checkpoints/{checkpointID}/dodge", a.snakeDodge)
		r.Post("/checkpoints/{checkpointID}/assign-question", a.assignQuestion)
		r.Post("/checkpoints/{checkpointID}/mark", a.markAnswer)
		r.Get("/questions/available", a.availableQuestions)
		r.Get("/questions/random/{teamID}", a.randomQuestion)
	})

	r.Route("/api/superadmin", func(r chi.Router) {
		r.Use(requireAuth(a.auth), requireRole(domain.RoleSuperadmin))
		r.Post("/teams", a.createTeam)
		r.Get("/teams", a.listTeams)
		r.Put("/teams/{teamID}/password", a.updateTeamPassword)
		r.Post("/teams/{teamID}/disqualify", a.disqualifyTeam)
		r.Post("/teams/{teamID}/reinstate", a.reinstateTeam)
		r.Put("/teams/{teamID}/room", a.changeRoom)
		r.Put("/teams/{teamID}/map", a.assignMap)
		r.Post("/teams/{teamID}/timer/adjust", a.adjustTimer)
		r.Post("/teams/{teamID}/timer/set", a.setTimer)
		r.Delete("/checkpoints/{checkpointID}", a.undoCheckpoint)

		r.Get("/admins", a.listAdmins)
		r.Post("/admins", a.createAdmin)
		r.Delete("/admins/{accountID}", a.deleteAdmin)

		r.Get("/maps", a.listMaps)
		r.Post("/maps", a.createMap)
		r.Get("/maps/{mapID}", a.getMap)
		r.Delete("/maps/{mapID}", a.deleteMap)
		r.Post("/maps/{mapID}/rules", a.addRule)
		r.Delete("/maps/{mapID}/rules/{ruleID}", a.removeRule)
	})

	r.Route("/api/questions", func(r chi.Router) {
		r.Use(requireAuth(a.auth))
		r.Group(func(r chi.Router) {
			r.Use(requireRole(domain.RoleAdmin, domain.RoleSuperadmin))
			r.Get("/", a.listQuestions)
			r.Get("/stats", a.questionStats)
			r.Get("/{questionID}", a.getQuestion)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireRole(domain.RoleSuperadmin))
			r.Post("/", a.createQuestion)
			r.Post("/bulk", a.bulkCreateQuestions)
			r.Put("/{questionID}", a.updateQuestion)
			r.Delete("/{questionID}", a.deleteQuestion)
			r.Post("/{questionID}/toggle", a.toggleQuestion)
		})
	})

	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			a.log.WithError(err).Warn("health check failed")
			fail(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	w.Write([]byte("ok"))
}
