package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/dual-auth/internal/domain"
	"github.com/ErlanBelekov/dual-auth/internal/password"
	"github.com/ErlanBelekov/dual-auth/internal/token"
	"github.com/ErlanBelekov/dual-auth/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	create      func(ctx context.Context, email, hash string) (*domain.User, error)
	findByID    func(ctx context.Context, id string) (*domain.User, error)
	findByEmail func(ctx context.Context, email string) (*domain.User, error)
	list        func(ctx context.Context) ([]*domain.User, error)
	count       func(ctx context.Context) (int, error)
}

func (r *fakeUserRepo) Create(ctx context.Context, email, hash string) (*domain.User, error) {
	return r.create(ctx, email, hash)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx)
}

func (r *fakeUserRepo) Count(ctx context.Context) (int, error) {
	return r.count(ctx)
}

type fakeEmailSender struct {
	sent []string
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to, _, _ string) error {
	s.sent = append(s.sent, to)
	return s.err
}

type failingIssuer struct{}

func (failingIssuer) IssueAccess(*domain.User) (string, time.Time, error) {
	return "", time.Time{}, domain.DeniedWith(domain.CodeTokenGenerationError, errors.New("boom"))
}

func (failingIssuer) IssuePair(*domain.User) (*domain.TokenPair, error) {
	return nil, domain.DeniedWith(domain.CodeTokenGenerationError, errors.New("boom"))
}

// ---- helpers ----

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

var hasher = password.NewHasher(bcrypt.MinCost)

type harness struct {
	uc     *usecase.AuthUsecase
	codec  *token.Codec
	repo   *fakeUserRepo
	sender *fakeEmailSender
}

func newHarness(t *testing.T, repo *fakeUserRepo) *harness {
	t.Helper()
	codec, err := token.NewCodec([]byte(testJWTKey))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	sender := &fakeEmailSender{}
	uc := usecase.NewAuthUsecase(repo, hasher, token.NewIssuer(codec), token.NewVerifier(codec, repo), sender, slog.Default())
	return &harness{uc: uc, codec: codec, repo: repo, sender: sender}
}

func storedUser(t *testing.T, plain string) *domain.User {
	t.Helper()
	hash, err := hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: hash,
		CreatedAt:    time.Now().Add(-72 * time.Hour),
	}
}

func notFound(context.Context, string) (*domain.User, error) { return nil, domain.ErrUserNotFound }

func codeOf(err error) domain.Code { return domain.CodeOf(err) }

// ---- Register ----

func TestRegister_StoresNormalizedEmailAndHash(t *testing.T) {
	var gotEmail, gotHash string
	repo := &fakeUserRepo{
		findByEmail: notFound,
		create: func(_ context.Context, email, hash string) (*domain.User, error) {
			gotEmail, gotHash = email, hash
			return &domain.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	h := newHarness(t, repo)

	user, err := h.uc.Register(context.Background(), usecase.RegisterInput{
		Email:                "  Alice@Example.COM ",
		Password:             "secret1",
		PasswordConfirmation: "secret1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotEmail != "alice@example.com" {
		t.Errorf("stored email = %q, want normalized", gotEmail)
	}
	if gotHash == "secret1" || hasher.Compare(gotHash, "secret1") != nil {
		t.Errorf("stored hash %q is not a bcrypt hash of the password", gotHash)
	}
	if user.ID != "user-1" {
		t.Errorf("user id = %q", user.ID)
	}
	if len(h.sender.sent) != 1 || h.sender.sent[0] != "alice@example.com" {
		t.Errorf("welcome mail sent to %v", h.sender.sent)
	}
}

func TestRegister_ValidationMessages(t *testing.T) {
	cases := []struct {
		name string
		in   usecase.RegisterInput
		want []string
	}{
		{"blank", usecase.RegisterInput{}, []string{"Email can't be blank", "Password can't be blank"}},
		{"bad email", usecase.RegisterInput{Email: "nope", Password: "secret1"}, []string{"Email is not a valid email address"}},
		{"short password", usecase.RegisterInput{Email: "a@x.com", Password: "abc"}, []string{"Password is too short (minimum is 6 characters)"}},
		{"confirmation", usecase.RegisterInput{Email: "a@x.com", Password: "secret1", PasswordConfirmation: "secret2"},
			[]string{"Password confirmation doesn't match Password"}},
		{"long password", usecase.RegisterInput{Email: "a@x.com", Password: strings.Repeat("a", 73)},
			[]string{"Password is too long (maximum is 72 characters)"}},
		{"long multibyte password", usecase.RegisterInput{Email: "a@x.com", Password: strings.Repeat("é", 40)},
			[]string{"Password is too long (maximum is 72 characters)"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeUserRepo{
				findByEmail: notFound,
				create: func(context.Context, string, string) (*domain.User, error) {
					t.Fatal("create must not be called for invalid input")
					return nil, nil
				},
			}
			_, err := newHarness(t, repo).uc.Register(context.Background(), tc.in)

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if strings.Join(verr.Messages, "|") != strings.Join(tc.want, "|") {
				t.Errorf("messages = %q, want %q", verr.Messages, tc.want)
			}
		})
	}
}

func TestRegister_DuplicateEmailDifferentCase(t *testing.T) {
	existing := &domain.User{ID: "user-1", Email: "a@x.com"}
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, email string) (*domain.User, error) {
			if email == existing.Email {
				return existing, nil
			}
			return nil, domain.ErrUserNotFound
		},
	}

	_, err := newHarness(t, repo).uc.Register(context.Background(), usecase.RegisterInput{
		Email: "A@x.com", Password: "secret1",
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(verr.Messages) != 1 || verr.Messages[0] != "Email has already been taken" {
		t.Errorf("messages = %q", verr.Messages)
	}
}

func TestRegister_UniqueViolationOnInsert(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: notFound,
		create: func(context.Context, string, string) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	}

	_, err := newHarness(t, repo).uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@x.com", Password: "secret1",
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestRegister_EmailFailureDoesNotFailRegistration(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmail: notFound,
		create: func(_ context.Context, email, hash string) (*domain.User, error) {
			return &domain.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	h := newHarness(t, repo)
	h.sender.err = errors.New("smtp unavailable")

	if _, err := h.uc.Register(context.Background(), usecase.RegisterInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegister_StoreErrorPropagates(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) { return nil, dbErr },
	}

	_, err := newHarness(t, repo).uc.Register(context.Background(), usecase.RegisterInput{Email: "a@x.com", Password: "secret1"})
	if !errors.Is(err, dbErr) {
		t.Errorf("want wrapped dbErr, got %v", err)
	}
}

// ---- Authenticate ----

func TestAuthenticate_Success(t *testing.T) {
	u := storedUser(t, "secret1")
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, email string) (*domain.User, error) {
			if email != u.Email {
				return nil, domain.ErrUserNotFound
			}
			return u, nil
		},
	}

	got, err := newHarness(t, repo).uc.Authenticate(context.Background(), " ALICE@example.com", "secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %q, want %q", got.ID, u.ID)
	}
}

func TestAuthenticate_WrongPasswordLooksLikeUnknownEmail(t *testing.T) {
	u := storedUser(t, "secret1")
	repo := &fakeUserRepo{
		findByEmail: func(_ context.Context, email string) (*domain.User, error) {
			if email != u.Email {
				return nil, domain.ErrUserNotFound
			}
			return u, nil
		},
	}
	h := newHarness(t, repo)

	_, wrongPw := h.uc.Authenticate(context.Background(), u.Email, "wrong-password")
	_, unknown := h.uc.Authenticate(context.Background(), "nobody@example.com", "secret1")

	if codeOf(wrongPw) != domain.CodeInvalidCredentials {
		t.Fatalf("wrong password: code = %q", codeOf(wrongPw))
	}
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("errors differ: %q vs %q", wrongPw, unknown)
	}
}

func TestAuthenticate_StoreError(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &fakeUserRepo{
		findByEmail: func(context.Context, string) (*domain.User, error) { return nil, dbErr },
	}

	_, err := newHarness(t, repo).uc.Authenticate(context.Background(), "a@x.com", "pw")
	if !errors.Is(err, dbErr) {
		t.Errorf("want wrapped dbErr, got %v", err)
	}
}

// ---- Refresh ----

func TestRefresh_IssuesNewPair(t *testing.T) {
	u := storedUser(t, "secret1")
	repo := &fakeUserRepo{
		findByID: func(context.Context, string) (*domain.User, error) { return u, nil },
	}
	h := newHarness(t, repo)

	pair, err := h.uc.IssueTokens(context.Background(), u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	next, err := h.uc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := h.codec.Decode(next.Token)
	if err != nil {
		t.Fatalf("decode new access token: %v", err)
	}
	if claims.Type != domain.AccessToken || claims.UserID != u.ID {
		t.Errorf("claims = %+v", claims)
	}

	// The same refresh token keeps working; nothing tracks its use.
	if _, err := h.uc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Errorf("second refresh: %v", err)
	}
}

func TestRefresh_Denials(t *testing.T) {
	u := storedUser(t, "secret1")
	repo := &fakeUserRepo{findByID: notFound}
	h := newHarness(t, repo)

	pair, err := h.uc.IssueTokens(context.Background(), u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	expiredCodec, err := token.NewCodec([]byte(testJWTKey), token.WithClock(func() time.Time {
		return time.Now().Add(-8 * 24 * time.Hour)
	}))
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	expired, _, err := token.NewIssuer(expiredCodec).
		WithClock(func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }).
		IssueRefresh(u)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	cases := []struct {
		name string
		raw  string
		want domain.Code
	}{
		{"blank", " ", domain.CodeMissingRefreshToken},
		{"access token", pair.Token, domain.CodeInvalidTokenType},
		{"garbage", "x.y.z", domain.CodeInvalidToken},
		{"expired", expired, domain.CodeTokenExpired},
		{"deleted user", pair.RefreshToken, domain.CodeUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.uc.Refresh(context.Background(), tc.raw)
			if got != nil {
				t.Errorf("got a token pair: %+v", got)
			}
			if codeOf(err) != tc.want {
				t.Errorf("code = %q, want %q (err %v)", codeOf(err), tc.want, err)
			}
		})
	}
}

func TestIssueTokens_GenerationError(t *testing.T) {
	codec, _ := token.NewCodec([]byte(testJWTKey))
	repo := &fakeUserRepo{}
	uc := usecase.NewAuthUsecase(repo, hasher, failingIssuer{}, token.NewVerifier(codec, repo), &fakeEmailSender{}, slog.Default())

	_, err := uc.IssueTokens(context.Background(), &domain.User{ID: "user-1"})
	if codeOf(err) != domain.CodeTokenGenerationError {
		t.Errorf("code = %q, want token_generation_error", codeOf(err))
	}

	_, _, err = uc.AccessToken(context.Background(), &domain.User{ID: "user-1"})
	if codeOf(err) != domain.CodeTokenGenerationError {
		t.Errorf("access code = %q, want token_generation_error", codeOf(err))
	}
}

func TestAccessToken_VerifiesAsAccess(t *testing.T) {
	u := storedUser(t, "secret1")
	repo := &fakeUserRepo{
		findByID: func(context.Context, string) (*domain.User, error) { return u, nil },
	}
	h := newHarness(t, repo)

	raw, exp, err := h.uc.AccessToken(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(exp) < 23*time.Hour {
		t.Errorf("expiry %v is too soon", exp)
	}
	if _, err := token.NewVerifier(h.codec, repo).VerifyAccess(context.Background(), raw); err != nil {
		t.Errorf("verify access: %v", err)
	}
}

// ---- Dashboard ----

func TestDashboard_Stats(t *testing.T) {
	u := storedUser(t, "secret1")
	repo := &fakeUserRepo{
		count: func(context.Context) (int, error) { return 42, nil },
	}

	d, err := newHarness(t, repo).uc.Dashboard(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TotalUsers != 42 {
		t.Errorf("total = %d, want 42", d.TotalUsers)
	}
	if d.AccountAgeDays != 3 {
		t.Errorf("age = %d, want 3", d.AccountAgeDays)
	}
}
