package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
)

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expiresAt"`
	Account   domain.Account `json:"account"`
	Team      *domain.Team   `json:"team,omitempty"`
}

// AuthService verifies credentials and manages staff accounts.
type AuthService struct {
	store  Store
	hasher PasswordHasher
	tokens TokenService
	now    func() time.Time
	log    logrus.FieldLogger
}

func NewAuthService(store Store, hasher PasswordHasher, tokens TokenService, log logrus.FieldLogger) *AuthService {
	return &AuthService{store: store, hasher: hasher, tokens: tokens, now: time.Now, log: log}
}

// Login checks a username and password. Participants log in with their team
// code and are refused once disqualified.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	account, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return LoginResult{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.hasher.ComparePassword(account.PasswordHash, password); err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	result := LoginResult{Account: account}
	if account.Role == domain.RoleParticipant {
		team, err := s.store.GetTeam(ctx, account.TeamID)
		if err != nil {
			return LoginResult{}, err
		}
		if team.Status == domain.TeamDisqualified {
			return LoginResult{}, domain.ErrTeamDisqualified
		}
		result.Team = &team
	}

	result.Token, result.ExpiresAt, err = s.tokens.GenerateToken(Claims{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		TeamID:    account.TeamID,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.log.WithFields(logrus.Fields{"username": account.Username, "role": account.Role}).Info("login")
	return result, nil
}

// Authenticate resolves a bearer token into claims.
func (s *AuthService) Authenticate(token string) (Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return Claims{}, domain.ErrInvalidCredentials
	}
	return claims, nil
}

func (s *AuthService) CreateAdmin(ctx context.Context, username, password string) (domain.Account, error) {
	return s.createStaff(ctx, username, password, domain.RoleAdmin)
}

// CreateSuperadmin bootstraps an organiser account.
func (s *AuthService) CreateSuperadmin(ctx context.Context, username, password string) (domain.Account, error) {
	return s.createStaff(ctx, username, password, domain.RoleSuperadmin)
}

func (s *AuthService) createStaff(ctx context.Context, username, password string, role domain.Role) (domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Account{}, domain.NewPrecondition("username is required")
	}
	if len(password) < 6 {
		return domain.Account{}, domain.NewPrecondition("password must be at least 6 characters")
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateAccount(ctx, &account); err != nil {
		return domain.Account{}, err
	}
	s.log.WithFields(logrus.Fields{"username": username, "role": role}).Info("account created")
	return account, nil
}

func (s *AuthService) ListAdmins(ctx context.Context) ([]domain.Account, error) {
	return s.store.ListAccounts(ctx, domain.RoleAdmin)
}

// DeleteAdmin removes an admin account. Other roles are not deletable here.
func (s *AuthService) DeleteAdmin(ctx context.Context, accountID string) error {
	return s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		admins, err := repo.ListAccounts(ctx, domain.RoleAdmin)
		if err != nil {
			return err
		}
		for _, a := range admins {
			if a.ID == accountID {
				return repo.DeleteAccount(ctx, accountID)
			}
		}
		return domain.ErrAccountNotFound
	})
}
