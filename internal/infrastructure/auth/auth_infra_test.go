package authinfra

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"curema-crm/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

func testUser() auth.User {
	return auth.User{
		ID:       "u-1",
		Username: "alice",
		Email:    "alice@curema.com",
		Role:     auth.RoleAdmin,
		Enabled:  true,
	}
}

func TestJWTCodec_MintAndVerify(t *testing.T) {
	codec := NewJWTCodec("secret", 30*time.Minute)

	token, issuedAt, expiresAt, err := codec.Mint(testUser(), "sess-1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if got, want := expiresAt.Sub(issuedAt), 30*time.Minute; got != want {
		t.Errorf("expiry window = %v, want %v", got, want)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "alice" || claims.SessionID != "sess-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.TokenType != auth.TokenTypeAccess {
		t.Errorf("tokenType = %q, want access", claims.TokenType)
	}
	if claims.TokenID == "" {
		t.Error("expected non-empty jti")
	}
}

func TestJWTCodec_UniqueTokenID(t *testing.T) {
	codec := NewJWTCodec("secret", time.Minute)
	t1, _, _, _ := codec.Mint(testUser(), "sess-1")
	t2, _, _, _ := codec.Mint(testUser(), "sess-1")

	c1, err := codec.Verify(t1)
	if err != nil {
		t.Fatalf("Verify t1: %v", err)
	}
	c2, err := codec.Verify(t2)
	if err != nil {
		t.Fatalf("Verify t2: %v", err)
	}
	if c1.TokenID == c2.TokenID {
		t.Error("expected distinct jti per mint")
	}
}

func TestJWTCodec_Expired(t *testing.T) {
	codec := NewJWTCodec("secret", time.Minute)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, _, _, err := codec.Mint(testUser(), "sess-1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if _, err := codec.Verify(token); !errors.Is(err, auth.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTCodec_TamperedSignature(t *testing.T) {
	codec := NewJWTCodec("secret", time.Minute)
	token, _, _, err := codec.Mint(testUser(), "sess-1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[0] ^= 0x01
	tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := codec.Verify(tampered); err == nil {
		t.Error("expected verification failure for tampered signature")
	}
}

func TestJWTCodec_WrongSecret(t *testing.T) {
	token, _, _, err := NewJWTCodec("secret-a", time.Minute).Mint(testUser(), "sess-1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if _, err := NewJWTCodec("secret-b", time.Minute).Verify(token); err == nil {
		t.Error("expected verification failure under different key")
	}
}

func TestJWTCodec_WrongTokenType(t *testing.T) {
	codec := NewJWTCodec("secret", time.Minute)

	now := time.Now()
	claims := Claims{
		UserID:    "u-1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Verify(signed); !errors.Is(err, auth.ErrWrongTokenType) {
		t.Errorf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{}
	pwd := "password123"
	hashed, err := h.Hash(pwd)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !h.Compare(hashed, pwd) {
		t.Error("Compare failed")
	}
	if h.Compare(hashed, "wrong") {
		t.Error("Compare should have failed")
	}
	if h.Compare("", pwd) || h.Compare(hashed, "") {
		t.Error("empty inputs must not match")
	}
}
