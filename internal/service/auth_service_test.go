package service

import (
	"errors"
	"testing"
	"time"

	"github.com/kontrolhq/kontrol-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, password string) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewAuthService(&config.Config{
		JWTSecret:           "test-secret",
		JWTExpiry:           time.Hour,
		TeacherPasswordHash: string(hash),
		BcryptCost:          bcrypt.MinCost,
	})
}

func TestTeacherLoginRoundTrip(t *testing.T) {
	svc := newAuthService(t, "chalk-and-talk")

	token, err := svc.TeacherLogin("chalk-and-talk")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.TokenType != TokenTypeTeacher {
		t.Errorf("token type = %q", claims.TokenType)
	}
}

func TestTeacherLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t, "chalk-and-talk")

	if _, err := svc.TeacherLogin("guess"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestTeacherLoginDisabledWithoutHash(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "s", JWTExpiry: time.Hour})

	if _, err := svc.TeacherLogin("anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unconfigured teacher mode must reject logins, got %v", err)
	}
}

func TestValidateTokenRejectsForgedSecret(t *testing.T) {
	svc := newAuthService(t, "chalk-and-talk")
	token, err := svc.TeacherLogin("chalk-and-talk")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewAuthService(&config.Config{JWTSecret: "different", JWTExpiry: time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with another secret was accepted")
	}
}
