package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/email"
	"github.com/ErlanBelekov/dual-auth/internal/metrics"
	"github.com/ErlanBelekov/dual-auth/internal/password"
	"github.com/ErlanBelekov/dual-auth/internal/repository"
	"github.com/go-playground/validator/v10"
)

type passwordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
	CompareDummy(plain string) error
}

type tokenIssuer interface {
	IssueAccess(user *domain.User) (string, time.Time, error)
	IssuePair(user *domain.User) (*domain.TokenPair, error)
}

type refreshVerifier interface {
	VerifyRefresh(ctx context.Context, raw string) (*domain.User, error)
}

type AuthUsecase struct {
	users    repository.UserRepository
	hasher   passwordHasher
	issuer   tokenIssuer
	verifier refreshVerifier
	email    email.Sender
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	hasher passwordHasher,
	issuer tokenIssuer,
	verifier refreshVerifier,
	emailSender email.Sender,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		email:    emailSender,
		validate: validator.New(),
		logger:   logger.With("component", "auth_usecase"),
	}
}

type RegisterInput struct {
	Email                string `validate:"required,email"`
	Password             string `validate:"required,min=6"`
	PasswordConfirmation string `validate:"omitempty,eqfield=Password"`
}

// Register validates the input, stores the user with a normalized email and
// a bcrypt hash, and sends a best-effort welcome mail. Invalid input and
// duplicate emails (compared case-insensitively) return *domain.ValidationError.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = domain.NormalizeEmail(in.Email)

	var msgs []string
	if err := u.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate registration: %w", err)
		}
		msgs = validationMessages(verrs)
	}
	if len(in.Password) > password.MaxBytes && !hasFieldMessage(msgs, "Password") {
		msgs = append(msgs, msgPasswordTooLong)
	}

	if in.Email != "" && !hasFieldMessage(msgs, "Email") {
		_, err := u.users.FindByEmail(ctx, in.Email)
		switch {
		case err == nil:
			msgs = append(msgs, msgEmailTaken)
		case !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	if len(msgs) > 0 {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, &domain.ValidationError{Messages: msgs}
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.users.Create(ctx, in.Email, hash)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			return nil, &domain.ValidationError{Messages: []string{msgEmailTaken}}
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.RegistrationsTotal.WithLabelValues("created").Inc()

	subject, body := email.Welcome(user.Email)
	if err := u.email.Send(ctx, user.Email, subject, body); err != nil {
		u.logger.WarnContext(ctx, "welcome email", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords both yield invalid_credentials and cost one bcrypt comparison.
func (u *AuthUsecase) Authenticate(ctx context.Context, emailAddr, plain string) (*domain.User, error) {
	user, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		_ = u.hasher.CompareDummy(plain)
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.Denied(domain.CodeInvalidCredentials)
	}

	if err := u.hasher.Compare(user.PasswordHash, plain); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			u.logger.ErrorContext(ctx, "compare password", "user_id", user.ID, "error", err)
		}
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.Denied(domain.CodeInvalidCredentials)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// IssueTokens mints a fresh access+refresh pair for user.
func (u *AuthUsecase) IssueTokens(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := u.issuer.IssuePair(user)
	if err != nil {
		u.logger.ErrorContext(ctx, "issue tokens", "user_id", user.ID, "error", err)
		return nil, err
	}
	return pair, nil
}

// AccessToken mints a standalone access token, e.g. for a logged-in page
// user who wants to call the API.
func (u *AuthUsecase) AccessToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	tok, exp, err := u.issuer.IssueAccess(user)
	if err != nil {
		u.logger.ErrorContext(ctx, "issue access token", "user_id", user.ID, "error", err)
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Refresh exchanges a refresh token for a brand-new pair. Nothing is
// recorded: any unexpired, correctly typed refresh token for an existing
// user is honored, any number of times.
func (u *AuthUsecase) Refresh(ctx context.Context, raw string) (*domain.TokenPair, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.Denied(domain.CodeMissingRefreshToken)
	}

	user, err := u.verifier.VerifyRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}

	return u.IssueTokens(ctx, user)
}

type Dashboard struct {
	User           *domain.User
	TotalUsers     int
	AccountAgeDays int
}

func (u *AuthUsecase) Dashboard(ctx context.Context, user *domain.User) (*Dashboard, error) {
	total, err := u.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		User:           user,
		TotalUsers:     total,
		AccountAgeDays: user.AccountAgeDays(time.Now()),
	}, nil
}

// ListUsers returns every user, newest first.
func (u *AuthUsecase) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return u.users.List(ctx)
}

// FindUser looks a user up by id; used to resolve session identities.
func (u *AuthUsecase) FindUser(ctx context.Context, id string) (*domain.User, error) {
	return u.users.FindByID(ctx, id)
}

const (
	msgEmailTaken      = "Email has already been taken"
	msgPasswordTooLong = "Password is too long (maximum is 72 characters)"
)

var fieldLabels = map[string]string{
	"Email":                "Email",
	"Password":             "Password",
	"PasswordConfirmation": "Password confirmation",
}

func validationMessages(verrs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, label+" can't be blank")
		case "email":
			msgs = append(msgs, label+" is not a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s is too short (minimum is %s characters)", label, fe.Param()))
		case "eqfield":
			msgs = append(msgs, label+" doesn't match "+fieldLabels[fe.Param()])
		default:
			msgs = append(msgs, label+" is invalid")
		}
	}
	return msgs
}

func hasFieldMessage(msgs []string, label string) bool {
	for _, m := range msgs {
		if strings.HasPrefix(m, label+" ") {
			return true
		}
	}
	return false
}
