package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	tok, err := m.Issue("u1", "driver")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.UserType != "driver" {
		t.Fatalf("wrong claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, _ := NewManager("secret-a", time.Hour).Issue("u1", "rider")
	if _, err := NewManager("secret-b", time.Hour).Verify(tok); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tok, _ := NewManager("secret", -time.Minute).Issue("u1", "rider")
	if _, err := NewManager("secret", -time.Minute).Verify(tok); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(h, "hunter2") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(h, "hunter3") {
		t.Fatal("wrong password accepted")
	}
	h2, _ := HashPassword("hunter2")
	if h == h2 {
		t.Fatal("expected distinct salts")
	}
}
