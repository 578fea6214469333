package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	repo "github.com/oksasatya/phq9-intake/internal/domain/repository"
	"github.com/oksasatya/phq9-intake/pkg/helpers"
)

func newTestUserService(r *stubUserRepo) *UserService {
	jwt := helpers.NewJWTManager("access-test", "refresh-test", time.Minute, time.Hour)
	return NewUserService(r, jwt, nil, nil, time.Hour)
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:           "jane.doe@gmail.com",
		Password:        "s3cret",
		ConfirmPassword: "s3cret",
		Age:             29,
		Gender:          "female",
		Industry:        "health",
		Profession:      "nurse",
		Username:        "jane",
		FirstName:       "Jane",
		LastName:        "Doe",
	}
}

func TestRegisterValidationOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		want   string
	}{
		{"non gmail", func(in *RegisterInput) { in.Email = "a@yahoo.com" }, "Email must be a valid @gmail.com address"},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "Email must be a valid @gmail.com address"},
		{"bare suffix", func(in *RegisterInput) { in.Email = "@gmail.com" }, "Email must be a valid @gmail.com address"},
		{"uppercase domain", func(in *RegisterInput) { in.Email = "Pat@GMAIL.COM" }, "Email must be a valid @gmail.com address"},
		{"password over 72 bytes", func(in *RegisterInput) {
			pw := strings.Repeat("密", 30)
			in.Password, in.ConfirmPassword = pw, pw
		}, "Password must be at most 72 bytes"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, "Password must be at least 4 characters"},
		{"mismatch", func(in *RegisterInput) { in.ConfirmPassword = "other" }, "Passwords do not match"},
		{"missing gender", func(in *RegisterInput) { in.Gender = "" }, "All fields are required"},
		{"missing age", func(in *RegisterInput) { in.Age = 0 }, "All fields are required"},
		{"missing lastname", func(in *RegisterInput) { in.LastName = "" }, "All fields are required"},
		{"email checked before password", func(in *RegisterInput) {
			in.Email = "a@yahoo.com"
			in.Password = "x"
		}, "Email must be a valid @gmail.com address"},
		{"password checked before confirmation", func(in *RegisterInput) {
			in.Password = "x"
			in.ConfirmPassword = "y"
		}, "Password must be at least 4 characters"},
		{"confirmation checked before other fields", func(in *RegisterInput) {
			in.ConfirmPassword = "nope"
			in.Industry = ""
		}, "Passwords do not match"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newStubUserRepo()
			svc := newTestUserService(r)
			in := validRegistration()
			tc.mutate(&in)
			_, err := svc.Register(context.Background(), in)
			msg, ok := IsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if msg != tc.want {
				t.Fatalf("message=%q, want %q", msg, tc.want)
			}
			if len(r.users) != 0 {
				t.Fatalf("user stored despite validation failure")
			}
		})
	}
}

func TestRegisterStoresHash(t *testing.T) {
	r := newStubUserRepo()
	svc := newTestUserService(r)
	u, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated id")
	}
	if u.PasswordHash == "s3cret" || !helpers.CompareHashAndPassword(u.PasswordHash, "s3cret") {
		t.Fatalf("password not stored as bcrypt hash")
	}
}

func TestRegisterAcceptsMultibytePasswordUpTo72Bytes(t *testing.T) {
	r := newStubUserRepo()
	svc := newTestUserService(r)
	in := validRegistration()
	pw := strings.Repeat("密", 24)
	in.Password, in.ConfirmPassword = pw, pw
	u, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, pw) {
		t.Fatalf("hash does not match password")
	}
}

func TestRegisterDuplicates(t *testing.T) {
	r := newStubUserRepo()
	svc := newTestUserService(r)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), validRegistration()); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	in := validRegistration()
	in.Email = "someone.else@gmail.com"
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterRaceMapsConstraint(t *testing.T) {
	cases := map[string]error{
		"user_emailid_key":  ErrEmailTaken,
		"user_username_key": ErrUsernameTaken,
	}
	for constraint, want := range cases {
		r := newStubUserRepo()
		r.createErr = &repo.ConstraintError{Kind: repo.ErrDuplicate, Constraint: constraint}
		svc := newTestUserService(r)
		if _, err := svc.Register(context.Background(), validRegistration()); !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", constraint, want, err)
		}
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	r := newStubUserRepo()
	svc := newTestUserService(r)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, wrongPwd := svc.Login(context.Background(), "jane.doe@gmail.com", "wrong")
	_, _, unknown := svc.Login(context.Background(), "nobody@gmail.com", "s3cret")
	if !errors.Is(wrongPwd, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPwd, unknown)
	}
	if wrongPwd.Error() != unknown.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPwd, unknown)
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	r := newStubUserRepo()
	svc := newTestUserService(r)
	reg, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	u, pair, err := svc.Login(context.Background(), "jane.doe@gmail.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != reg.ID || u.Username != "jane" {
		t.Fatalf("unexpected user %+v", u)
	}
	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != reg.ID || claims.SessionID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if !pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry) {
		t.Fatalf("refresh should outlive access")
	}
}

func TestRefresh(t *testing.T) {
	r := newStubUserRepo()
	svc := newTestUserService(r)
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}
	u, pair, err := svc.Login(context.Background(), "jane.doe@gmail.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, uid, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if uid != u.ID || next.AccessToken == "" {
		t.Fatalf("unexpected refresh result uid=%q", uid)
	}
	if _, _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestGetProfileUnknown(t *testing.T) {
	svc := newTestUserService(newStubUserRepo())
	if _, err := svc.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
