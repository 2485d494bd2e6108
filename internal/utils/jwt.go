package utils

import (
    "crypto/rand"
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/google/uuid"
)

// PurposeReset marks tokens that may only be used to set a new password.
const PurposeReset = "password_reset"

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// purpose checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT along with its expiry.  Access
// tokens are short‑lived and sent in the Authorization header when calling
// protected endpoints; password reset tokens use the same shape.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// The Raw field contains the raw token string returned to the client.  In the
// database only a SHA‑256 hash of the raw string is stored.
type RefreshToken struct {
    Raw string
    Exp time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The token
// carries sub (user id), role ("user" or "admin"), exp and iat.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// NewResetToken signs a single-purpose token for the password reset link.
// It embeds a fingerprint of the user's current password hash, so the
// token stops working as soon as the password changes.
func NewResetToken(secret string, userID uint64, passwordHash string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":     strconv.FormatUint(userID, 10),
        "purpose": PurposeReset,
        "fp":      PasswordFingerprint(passwordHash),
        "jti":     uuid.NewString(),
        "exp":     exp.Unix(),
        "iat":     now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

func parseSigned(secret, raw string) (jwt.MapClaims, error) {
    claims := jwt.MapClaims{}
    _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        return nil, ErrInvalidToken
    }
    return claims, nil
}

// subject reads sub as written by either token kind: a JSON number for
// access tokens, a decimal string for reset tokens.
func subject(claims jwt.MapClaims) (uint64, bool) {
    switch sub := claims["sub"].(type) {
    case float64:
        return uint64(sub), sub >= 1
    case string:
        n, err := strconv.ParseUint(sub, 10, 64)
        return n, err == nil && n > 0
    }
    return 0, false
}

// ParseAccessToken validates an access token and returns its user id and
// role.  Purpose-scoped tokens, such as reset links, are refused.
func ParseAccessToken(secret, raw string) (uint64, string, error) {
    claims, err := parseSigned(secret, raw)
    if err != nil {
        return 0, "", err
    }
    if _, scoped := claims["purpose"]; scoped {
        return 0, "", ErrInvalidToken
    }
    uid, ok := subject(claims)
    if !ok {
        return 0, "", ErrInvalidToken
    }
    role, _ := claims["role"].(string)
    return uid, role, nil
}

// ParseResetToken validates a reset token and returns the user id and the
// password fingerprint it was issued for.
func ParseResetToken(secret, raw string) (uint64, string, error) {
    claims, err := parseSigned(secret, raw)
    if err != nil || claims["purpose"] != PurposeReset {
        return 0, "", ErrInvalidToken
    }
    uid, ok := subject(claims)
    if !ok {
        return 0, "", ErrInvalidToken
    }
    fp, _ := claims["fp"].(string)
    return uid, fp, nil
}

// PasswordFingerprint is a short digest of a bcrypt hash.
func PasswordFingerprint(passwordHash string) string {
    sum := sha256.Sum256([]byte(passwordHash))
    return hex.EncodeToString(sum[:8])
}

// NewRefreshToken returns a cryptographically secure random token (raw) and
// its expiration time.  The ttlDays parameter controls how many days the
// refresh token is valid.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Only the hash is persisted.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
