package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rncflow/internal/bootstrap/logging"
	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

// ErrBadLogin hides whether the email or the password was wrong.
var ErrBadLogin = errs.New(errs.KindUnauthorized, "invalid email or password")

// Service manages the parts and users the workflow refers to, and issues credentials.
type Service struct {
	users  ports.UserRepository
	parts  ports.PartRepository
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
}

func NewService(users ports.UserRepository, parts ports.PartRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer) *Service {
	return &Service{
		users:  users,
		parts:  parts,
		hasher: hasher,
		tokens: tokens,
	}
}

type RegisterUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type RegisterPartInput struct {
	Code        string
	Description string
	Client      string
}

func (s *Service) RegisterUser(ctx context.Context, input RegisterUserInput) (rnc.User, error) {
	if err := checkContext(ctx); err != nil {
		return rnc.User{}, err
	}
	if s.users == nil || s.hasher == nil {
		return rnc.User{}, errors.New("user repository and password hasher are required")
	}

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		return rnc.User{}, fmt.Errorf("%w: name", rnc.ErrFieldRequired)
	}
	if email == "" || !strings.Contains(email, "@") {
		return rnc.User{}, fmt.Errorf("%w: email", rnc.ErrInvalidField)
	}
	role, err := rnc.ParseRole(input.Role)
	if err != nil {
		return rnc.User{}, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return rnc.User{}, err
	}

	user, err := s.users.Create(ctx, rnc.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return rnc.User{}, errs.Wrapf(err, "register user %s", email)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "usecase.account")),
		"user registered",
		slog.Uint64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *Service) RegisterPart(ctx context.Context, input RegisterPartInput) (rnc.Part, error) {
	if err := checkContext(ctx); err != nil {
		return rnc.Part{}, err
	}
	if s.parts == nil {
		return rnc.Part{}, errors.New("part repository is required")
	}

	code := strings.TrimSpace(input.Code)
	if code == "" {
		return rnc.Part{}, fmt.Errorf("%w: code", rnc.ErrFieldRequired)
	}

	part, err := s.parts.Create(ctx, rnc.Part{
		Code:        code,
		Description: input.Description,
		Client:      input.Client,
		Active:      true,
	})
	if err != nil {
		return rnc.Part{}, errs.Wrapf(err, "register part %s", code)
	}
	return part, nil
}

// CreateUser is RegisterUser on behalf of a signed-in actor; only ADMIN may add users.
func (s *Service) CreateUser(ctx context.Context, input RegisterUserInput, actor rnc.Actor) (rnc.User, error) {
	if actor.Role != rnc.RoleAdmin {
		return rnc.User{}, fmt.Errorf("%w: %s cannot create users", rnc.ErrRoleNotAllowed, actor.Role)
	}
	return s.RegisterUser(ctx, input)
}

func (s *Service) FindPart(ctx context.Context, code string) (rnc.Part, error) {
	if err := checkContext(ctx); err != nil {
		return rnc.Part{}, err
	}
	if s.parts == nil {
		return rnc.Part{}, errors.New("part repository is required")
	}

	part, err := s.parts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return rnc.Part{}, fmt.Errorf("%w: %s", rnc.ErrPartNotFound, code)
		}
		return rnc.Part{}, err
	}
	return part, nil
}

// Login checks the password and issues a token for an active user.
func (s *Service) Login(ctx context.Context, email string, password string) (ports.Token, rnc.User, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Token{}, rnc.User{}, err
	}
	if s.users == nil || s.hasher == nil || s.tokens == nil {
		return ports.Token{}, rnc.User{}, errors.New("login dependencies are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.Token{}, rnc.User{}, ErrBadLogin
		}
		return ports.Token{}, rnc.User{}, err
	}
	if !user.Active {
		return ports.Token{}, rnc.User{}, ErrBadLogin
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return ports.Token{}, rnc.User{}, ErrBadLogin
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		return ports.Token{}, rnc.User{}, err
	}
	return token, user, nil
}

// IssueFor issues a token without a password check. Operator tooling only.
func (s *Service) IssueFor(ctx context.Context, email string) (ports.Token, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Token{}, err
	}
	if s.users == nil || s.tokens == nil {
		return ports.Token{}, errors.New("user repository and token issuer are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.Token{}, fmt.Errorf("%w: %s", rnc.ErrUserNotFound, email)
		}
		return ports.Token{}, err
	}
	return s.issue(ctx, user)
}

func (s *Service) Logout(ctx context.Context, credential string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.tokens == nil {
		return errors.New("token issuer is required")
	}
	return s.tokens.Revoke(ctx, credential)
}

func (s *Service) issue(ctx context.Context, user rnc.User) (ports.Token, error) {
	return s.tokens.Issue(ctx, ports.Identity{
		UserID:  user.ID,
		Role:    user.Role,
		Subject: user.Email,
	})
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}
