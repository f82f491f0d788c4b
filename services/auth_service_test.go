package services

import (
	"context"
	"errors"
	"testing"

	"campus-events-api/models"
)

func validSignup() RegisterInput {
	return RegisterInput{
		Name:     "Asha Rao",
		Email:    "o210001@" + testOrgDomain,
		IDNumber: "o210001",
		Branch:   "CSE",
		Password: "correct horse",
	}
}

func TestAuthRegister(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, testStudentIDPattern)

	user, token, err := svc.Register(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatal("expected a confirmation token")
	}
	if user.IDNumber != "O210001" {
		t.Errorf("IDNumber = %q, want normalized %q", user.IDNumber, "O210001")
	}
	if user.Role != models.RoleGeneral {
		t.Errorf("Role = %s, want general", user.Role)
	}
	if user.EmailConfirmed {
		t.Error("a fresh account must not be confirmed")
	}
	if user.PasswordHash != "" {
		t.Error("password hash must not leak out of the service")
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, testStudentIDPattern)

	cases := []struct {
		name    string
		mutate  func(*RegisterInput)
		wantErr error
	}{
		{"short password", func(in *RegisterInput) { in.Password = "short" }, ErrPasswordTooShort},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, ErrValidationFailed},
		{"bad id number", func(in *RegisterInput) { in.IDNumber = "12345" }, ErrValidationFailed},
		{"unknown branch", func(in *RegisterInput) { in.Branch = "ARTS" }, ErrValidationFailed},
		{"empty name", func(in *RegisterInput) { in.Name = "" }, ErrValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validSignup()
			tc.mutate(&input)
			if _, _, err := svc.Register(context.Background(), input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, testStudentIDPattern)

	if _, _, err := svc.Register(context.Background(), validSignup()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	dup := validSignup()
	dup.IDNumber = "O210002"
	if _, _, err := svc.Register(context.Background(), dup); !errors.Is(err, ErrUserEmailConflict) {
		t.Fatalf("err = %v, want ErrUserEmailConflict", err)
	}
}

func TestAuthLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, testStudentIDPattern)

	input := validSignup()
	_, token, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unconfirmed accounts cannot log in yet.
	if _, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: input.Password}); !errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("unconfirmed login err = %v, want ErrEmailNotConfirmed", err)
	}

	if err := svc.ConfirmEmail(context.Background(), token); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	user, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: input.Password})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Email != input.Email {
		t.Errorf("Email = %q, want %q", user.Email, input.Email)
	}

	if _, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: "wrong password"}); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("wrong password err = %v, want ErrAuthenticationFailed", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@" + testOrgDomain, Password: "whatever!"}); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("unknown email err = %v, want ErrAuthenticationFailed", err)
	}
}

func TestAuthConfirmEmailTwice(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, testStudentIDPattern)

	_, token, err := svc.Register(context.Background(), validSignup())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.ConfirmEmail(context.Background(), token); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}
	// The token is cleared on confirmation, so reuse looks like a bad token.
	if err := svc.ConfirmEmail(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("second ConfirmEmail err = %v, want ErrTokenInvalid", err)
	}
}

func TestAuthPasswordReset(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(users, testStudentIDPattern)

	input := validSignup()
	_, confirmToken, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.ConfirmEmail(context.Background(), confirmToken); err != nil {
		t.Fatalf("ConfirmEmail: %v", err)
	}

	// Unknown emails produce no token and no error.
	if token, err := svc.GeneratePasswordResetToken(context.Background(), "nobody@"+testOrgDomain); err != nil || token != "" {
		t.Fatalf("unknown email: token=%q err=%v, want empty and nil", token, err)
	}

	token, err := svc.GeneratePasswordResetToken(context.Background(), input.Email)
	if err != nil || token == "" {
		t.Fatalf("GeneratePasswordResetToken: token=%q err=%v", token, err)
	}

	if err := svc.ResetPasswordByToken(context.Background(), token, "tiny"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password err = %v, want ErrPasswordTooShort", err)
	}
	if err := svc.ResetPasswordByToken(context.Background(), "bogus-token", "a new password"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("bogus token err = %v, want ErrTokenInvalid", err)
	}
	if err := svc.ResetPasswordByToken(context.Background(), token, "a new password"); err != nil {
		t.Fatalf("ResetPasswordByToken: %v", err)
	}

	if _, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: input.Password}); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatal("old password should no longer work")
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: input.Email, Password: "a new password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
