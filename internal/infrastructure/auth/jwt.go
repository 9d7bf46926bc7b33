package authinfra

import (
	"errors"
	"time"

	"curema-crm/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTCodec 簽發與驗證 access token。refresh token 為不透明亂數字串，
// 由儲存層比對，不經過這裡。
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTCodec 建立 access token 簽發器。
func NewJWTCodec(secret string, ttl time.Duration) *JWTCodec {
	return &JWTCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Claims 定義 access token 的 payload。欄位固定，不使用動態 map。
type Claims struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// TTL 回傳 access token 有效期間。
func (c *JWTCodec) TTL() time.Duration {
	return c.ttl
}

// Mint 簽發綁定指定 session 的 access token，每次給予新的 jti。
func (c *JWTCodec) Mint(user auth.User, sessionID string) (token string, issuedAt, expiresAt time.Time, err error) {
	issuedAt = c.now()
	expiresAt = issuedAt.Add(c.ttl)

	claims := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sessionID,
		TokenType: auth.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return signed, issuedAt, expiresAt, nil
}

// Verify 驗證簽章與有效期並解出 claims。
// 過期回傳 ErrTokenExpired；tokenType 不是 access 回傳 ErrWrongTokenType。
func (c *JWTCodec) Verify(token string) (auth.AccessClaims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.AccessClaims{}, auth.ErrTokenExpired
		}
		return auth.AccessClaims{}, err
	}
	if !tkn.Valid {
		return auth.AccessClaims{}, errors.New("invalid token")
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return auth.AccessClaims{}, auth.ErrWrongTokenType
	}

	out := auth.AccessClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		TokenType: claims.TokenType,
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
