package auth

import (
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not be the plaintext")
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("matching password rejected")
	}
	if CheckPassword(hash, "battery staple") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("err = %v, want ErrPasswordTooShort", err)
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	if CheckPassword("", "") {
		t.Error("empty hash must never match")
	}
}
