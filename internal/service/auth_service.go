package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/refgen"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const minPasswordLength = 6

// RegisterInput creates a customer account.
type RegisterInput struct {
	Name        string
	Email       string
	PhoneNumber string
	Password    string
}

// CreateStaffInput creates an employee account.
type CreateStaffInput struct {
	Name        string
	Email       string
	PhoneNumber string
	Password    string
	Role        domain.Role
}

// AuthResult is an account plus a signed access token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	clock      clock.Clock
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Clock    clock.Clock
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		clock:      deps.Clock,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	user, err := s.newUser(input.Name, input.Email, input.PhoneNumber, input.Password, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, mapRepoError(err, "user", "")
	}
	return s.issue(user)
}

// Login verifies credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, mapRepoError(err, "user", "")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// CreateStaff creates an employee with the next employee ID for its role.
// Only admins may call it.
func (s *AuthService) CreateStaff(ctx context.Context, actor domain.Actor, input CreateStaffInput) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins can create staff accounts")
	}
	role, _ := domain.ParseRole(string(input.Role))
	prefix, ok := refgen.RolePrefix(role)
	if !ok {
		return nil, apperrors.NewValidationError("role must be an employee role", map[string]any{"role": input.Role})
	}
	user, err := s.newUser(input.Name, input.Email, input.PhoneNumber, input.Password, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateStaff(ctx, user, prefix); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, mapRepoError(err, "user", "")
	}
	return user, nil
}

// Me loads the caller's account.
func (s *AuthService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, mapRepoError(err, "user", actor.UserID)
	}
	return user, nil
}

// SetOnline toggles an agent's availability for assignment.
func (s *AuthService) SetOnline(ctx context.Context, actor domain.Actor, online bool) error {
	if actor.Role != domain.RoleHumanAgent {
		return apperrors.NewForbidden("only human agents have an online status")
	}
	return mapRepoError(s.users.SetOnline(ctx, actor.UserID, online), "user", actor.UserID)
}

// ListStaff lists employees, optionally narrowed to roles. Managers, CTOs
// and admins only.
func (s *AuthService) ListStaff(ctx context.Context, actor domain.Actor, roles []string) ([]domain.User, error) {
	switch actor.Role {
	case domain.RoleManager, domain.RoleCTO, domain.RoleAdmin:
	default:
		return nil, apperrors.NewForbidden("insufficient role to list staff")
	}
	wanted := make([]domain.Role, 0, len(roles))
	for _, raw := range roles {
		role, ok := domain.ParseRole(raw)
		if !ok || !role.IsStaff() {
			return nil, apperrors.NewValidationError("role must be an employee role", map[string]any{"role": raw})
		}
		wanted = append(wanted, role)
	}
	if len(wanted) == 0 {
		wanted = []domain.Role{domain.RoleManager, domain.RoleHumanAgent, domain.RoleCTO, domain.RoleAdmin}
	}
	users, err := s.users.ListByRole(ctx, wanted...)
	if err != nil {
		return nil, mapRepoError(err, "user", "")
	}
	return users, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) newUser(name, email, phone, password string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		details["email"] = "invalid"
	}
	if len(password) < minPasswordLength {
		details["password"] = "too short"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid account data", details)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(phone),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
