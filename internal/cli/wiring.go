package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/auth"
	"snakes-hunt-service/internal/config"
	"snakes-hunt-service/internal/infra/memory"
	"snakes-hunt-service/internal/infra/postgres"
	rediscache "snakes-hunt-service/internal/infra/redis"
	transport "snakes-hunt-service/internal/transport/http"
)

// publisher is an event sink the HTTP layer can also subscribe to.
type publisher interface {
	app.EventPublisher
	transport.EventSource
}

// services is the assembled object graph plus the resources to release.
type services struct {
	store     app.Store
	engine    *app.Engine
	teams     *app.TeamService
	boards    *app.BoardService
	questions *app.QuestionService
	auth      *app.AuthService
	events    publisher
	health    func(ctx context.Context) error
	closers   []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices picks Postgres or the in-memory store, and Redis or in-process
// caching and fan-out, depending on what the config provides.
func buildServices(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*services, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	policy, err := app.ParseSelectionPolicy(cfg.Game.SelectionPolicy)
	if err != nil {
		return nil, err
	}

	s := &services{}
	var loader memory.RuleLoader
	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		s.closers = append(s.closers, func() { _ = db.Close() })
		pgStore := postgres.NewStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect postgres pool: %w", err)
		}
		s.closers = append(s.closers, pool.Close)

		s.store = pgStore
		s.health = pgStore.Ping
		loader = postgres.NewRuleLoader(pool)
		log.Info("using postgres store")
	} else {
		memStore := memory.NewStore()
		s.store = memStore
		loader = memStore
		log.Warn("postgres url not configured; state is kept in memory")
	}

	boardTTL := config.TTLDuration(cfg.Board.CacheTTL, 10*time.Minute)
	var rules app.BoardRules
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		rules = rediscache.NewBoardCache(client, loader, boardTTL)
		s.events = rediscache.NewFeed(client, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour), log)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis cache and event feed")
	} else {
		rules = memory.NewBoardCache(loader, boardTTL)
		s.events = memory.NewFeed()
	}

	hasher := auth.NewBcryptHasher(0)
	tokens := auth.NewJWTService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL))
	window := config.TTLDuration(cfg.Game.RecentWindow, app.DefaultRecentWindow)

	s.engine = app.NewEngine(s.store, rules,
		app.WithLogger(log),
		app.WithEvents(s.events),
		app.WithSelectionPolicy(policy, window),
	)
	s.boards = app.NewBoardService(s.store, rules)
	s.teams = app.NewTeamService(s.store, hasher, s.boards, log)
	s.questions = app.NewQuestionService(s.store)
	s.auth = app.NewAuthService(s.store, hasher, tokens, log)
	return s, nil
}
