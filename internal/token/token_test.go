package token

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateVerify(t *testing.T) {
	secret := []byte("secret")
	tok, err := Generate("3f6c", "home", secret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	h, err := Verify(tok, secret, time.Minute)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if h.ScreenID != "3f6c" || h.Screen != "home" {
		t.Fatalf("unexpected handle: %+v", h)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, _ := Generate("3f6c", "home", []byte("secret"))
	if _, err := Verify(tok, []byte("other"), 0); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	secret := []byte("secret")
	tok, _ := Generate("3f6c", "home", secret)
	forged, _ := Generate("9999", "home", []byte("attacker"))

	parts := strings.Split(tok, ".")
	forgedParts := strings.Split(forged, ".")
	if _, err := Verify(forgedParts[0]+"."+parts[1], secret, 0); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid for swapped payload, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b.c", "!!.!!"} {
		if _, err := Verify(tok, []byte("secret"), 0); err != ErrInvalid {
			t.Errorf("%q: expected ErrInvalid, got %v", tok, err)
		}
	}
}

func TestVerifyExpired(t *testing.T) {
	secret := []byte("secret")
	tok, _ := Generate("3f6c", "home", secret)
	time.Sleep(1100 * time.Millisecond)
	if _, err := Verify(tok, secret, time.Millisecond); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := Verify(tok, secret, 0); err != nil {
		t.Fatalf("zero ttl should never expire, got %v", err)
	}
}
