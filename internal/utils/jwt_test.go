package utils

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenClaims(t *testing.T) {
	at, err := NewAccessToken("s3cret", 7, "admin", 15)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["role"] != "admin" {
		t.Errorf("role = %v", claims["role"])
	}
	if sub, _ := claims["sub"].(float64); sub != 7 {
		t.Errorf("sub = %v", claims["sub"])
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	rt, err := NewResetToken("s3cret", 42, hash, 30)
	if err != nil {
		t.Fatal(err)
	}
	uid, fp, err := ParseResetToken("s3cret", rt.Token)
	if err != nil {
		t.Fatal(err)
	}
	if uid != 42 || fp != PasswordFingerprint(hash) {
		t.Fatalf("uid=%d fp=%s", uid, fp)
	}
	if _, _, err := ParseResetToken("other", rt.Token); err != ErrInvalidToken {
		t.Fatalf("wrong secret: err = %v", err)
	}
}

func TestAccessTokenIsNotAResetToken(t *testing.T) {
	at, _ := NewAccessToken("s3cret", 7, "user", 15)
	if _, _, err := ParseResetToken("s3cret", at.Token); err != ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "hunter22") || VerifyPassword(h, "hunter23") {
		t.Fatal("bcrypt verification mismatch")
	}
	if HashRefreshRaw("abc") == HashRefreshRaw("abd") || len(HashRefreshRaw("abc")) != 64 {
		t.Fatal("refresh hash not a sha256 hex digest")
	}
}

func TestNeedsRehash(t *testing.T) {
	h, err := HashPassword("hunter22", 4)
	if err != nil {
		t.Fatal(err)
	}
	if NeedsRehash(h, 4) || NeedsRehash(h, 1) {
		t.Fatal("same effective cost reported as stale")
	}
	if !NeedsRehash(h, 5) {
		t.Fatal("cost change not detected")
	}
	if NeedsRehash("not-a-hash", 10) {
		t.Fatal("garbage hash reported as rehashable")
	}
	if _, err := HashPassword(strings.Repeat("x", 73), 4); err == nil {
		t.Fatal("73-byte password accepted")
	}
}

func TestParseAccessToken(t *testing.T) {
	at, _ := NewAccessToken("s3cret", 7, "user", 15)
	uid, role, err := ParseAccessToken("s3cret", at.Token)
	if err != nil || uid != 7 || role != "user" {
		t.Fatalf("uid=%d role=%q err=%v", uid, role, err)
	}
	if _, _, err := ParseAccessToken("other", at.Token); err != ErrInvalidToken {
		t.Fatalf("foreign secret: %v", err)
	}

	expired, _ := NewAccessToken("s3cret", 7, "user", -1)
	if _, _, err := ParseAccessToken("s3cret", expired.Token); err != ErrInvalidToken {
		t.Fatalf("expired: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": 7, "role": "admin", "exp": 9999999999})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, _, err := ParseAccessToken("s3cret", raw); err != ErrInvalidToken {
		t.Fatalf("alg none accepted: %v", err)
	}

	reset, _ := NewResetToken("s3cret", 7, "hash", 15)
	if _, _, err := ParseAccessToken("s3cret", reset.Token); err != ErrInvalidToken {
		t.Fatalf("reset token accepted: %v", err)
	}
}
